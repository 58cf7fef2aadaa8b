package main

import "github.com/loganalyzer/lvx/cmd"

func main() {
	cmd.Execute()
}
