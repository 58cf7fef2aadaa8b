package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/loganalyzer/lvx/pkg/config"
	"github.com/loganalyzer/lvx/pkg/logging"
	"github.com/loganalyzer/lvx/pkg/session"
	"github.com/loganalyzer/lvx/pkg/ui"
	"github.com/loganalyzer/lvx/pkg/watcher"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	theme      string
	watch      bool
	debug      bool
	logFile    string

	// closes the log file opened for a subcommand
	logCloser = func() error { return nil }
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lvx <file>",
	Short: "lvx - terminal viewer for JSON line logs",
	Long: `lvx loads a file of JSON log lines and shows it as a table that can be
filtered by level, message, payload and caller, searched, and exported.

Each line must carry "level", "ts" and "msg" string fields; other fields
become the record payload. Files ending in .gz, .zst or .zstd are decompressed.

Examples:
  lvx /var/log/app.jsonl                 # Open a log file
  lvx --watch /var/log/app.jsonl         # Notice changes on disk
  lvx --theme=light app.jsonl.zst        # Use light theme on a compressed file
  lvx export --level ERROR app.jsonl     # Print only errors`,
	Args:          cobra.ExactArgs(1),
	RunE:          runViewer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	err := rootCmd.Execute()
	logCloser()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// assigned here rather than in the literal to avoid an initialization cycle
	rootCmd.PersistentPreRunE = setupCommandLogging
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/lvx/config.yaml)")
	rootCmd.Flags().StringVar(&theme, "theme", "", "color theme (dark, light, monochrome)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch the file for changes")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default: general.log_file, or $XDG_CONFIG_HOME/lvx/lvx.log with --debug)")
}

// runViewer is the main execution function
func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command line flags
	if theme != "" {
		cfg.UI.Theme = theme
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	sess := session.New()
	if err := sess.LoadFile(args[0]); err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var w *watcher.Watcher
	if watch {
		w, err = watcher.New(ctx, sess.Path(), watcher.DefaultSettle)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", sess.Path(), err)
		}
	}

	model, err := ui.NewModel(ctx, cfg, sess, w)
	if err != nil {
		return fmt.Errorf("failed to initialize UI: %w", err)
	}
	defer model.Stop()

	program := tea.NewProgram(model, tea.WithAltScreen())

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
			program.Quit()
		case <-ctx.Done():
		}
	}()

	log.Info().Str("session", sess.ID()).Str("path", sess.Path()).Bool("watch", watch).Msg("starting UI")

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}
	return nil
}

// setupCommandLogging keeps subcommand output free of log lines: logs go to
// --log-file, or the default log file with --debug, and are discarded
// otherwise. The viewer applies the config file's general section itself.
func setupCommandLogging(cmd *cobra.Command, args []string) error {
	if cmd == rootCmd {
		return nil
	}

	closer, err := setupLogging(config.DefaultConfig())
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

// loadConfig loads --config when given, otherwise the default file
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFrom(configFile)
	}
	return config.Load()
}

// setupLogging applies the general section and the logging flags
func setupLogging(cfg *config.Config) (func() error, error) {
	opts := logging.Options{
		Level: cfg.General.LogLevel,
		File:  cfg.General.LogFile,
	}

	if debug {
		opts.Level = "debug"
		if opts.File == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, err
			}
			opts.File = filepath.Join(dir, "lvx.log")
		}
	}
	if logFile != "" {
		opts.File = logFile
	}

	return logging.Setup(opts)
}
