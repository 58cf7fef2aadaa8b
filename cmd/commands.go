package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/loganalyzer/lvx/pkg/export"
	"github.com/loganalyzer/lvx/pkg/loader"
	"github.com/loganalyzer/lvx/pkg/models"
	"github.com/loganalyzer/lvx/pkg/session"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lvx v%s\n", version)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// validateCmd reads log files and reports how many lines were usable
var validateCmd = &cobra.Command{
	Use:   "validate <files...>",
	Short: "Validate log files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateFiles(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
	},
}

func validateFiles(out, errOut io.Writer, files []string) error {
	failed := 0
	for _, file := range files {
		_, stats, err := loader.Load(file)
		if err != nil {
			fmt.Fprintf(errOut, "✗ %s: %v\n", file, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "✓ %s: %s records, %s dropped, %s read in %s\n",
			file,
			humanize.Comma(int64(stats.Kept)),
			humanize.Comma(int64(stats.Dropped)),
			humanize.Bytes(uint64(stats.Bytes)),
			stats.Elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(files))
	}
	return nil
}

// exportOptions holds the flags of the export command
type exportOptions struct {
	levels  []string
	message string
	payload string
	caller  string
	format  string
	output  string
}

var exportFlags exportOptions

// exportCmd filters a file without the UI and writes the visible records
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Filter a log file and export the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportFile(cmd.OutOrStdout(), args[0], exportFlags)
	},
}

func exportFile(out io.Writer, path string, opts exportOptions) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	sess := session.New()
	if err := sess.LoadFile(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	if len(opts.levels) > 0 {
		for _, level := range models.KnownLevels {
			sess.SetFilterLevel(level, false)
		}
		for _, name := range opts.levels {
			level := models.ParseLevel(strings.ToUpper(name))
			if level == models.LevelUnknown {
				return fmt.Errorf("unknown level %q", name)
			}
			sess.SetFilterLevel(level, true)
		}
	}
	sess.SetFilter(models.FieldMessage, opts.message)
	sess.SetFilter(models.FieldPayload, opts.payload)
	sess.SetFilter(models.FieldCaller, opts.caller)

	exporter := export.New()
	options := exporter.GenerateDefaultOptions(opts.output, format)
	options.Metadata["session"] = sess.ID()
	options.Metadata["source"] = sess.Path()

	if opts.output != "" {
		if err := exporter.ExportRecords(sess.Visible(), options); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %s of %s records to %s\n",
			humanize.Comma(int64(sess.VisibleCount())),
			humanize.Comma(int64(sess.TotalCount())),
			opts.output)
		return nil
	}

	return exporter.Write(out, sess.Visible(), options)
}

// Add subcommands
func init() {
	exportCmd.Flags().StringSliceVarP(&exportFlags.levels, "level", "l", nil, "only keep these levels (repeatable: DEBUG, INFO, WARN, ERROR, PANIC)")
	exportCmd.Flags().StringVarP(&exportFlags.message, "message", "m", "", "message substring")
	exportCmd.Flags().StringVarP(&exportFlags.payload, "payload", "p", "", "payload substring")
	exportCmd.Flags().StringVarP(&exportFlags.caller, "caller", "c", "", "caller substring")
	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "text", "output format (text, json, csv, html)")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
}
