package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/homectl"
	"github.com/vango-dev/homectl/internal/config"
	"github.com/vango-dev/homectl/pkg/notify"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	dir      string
	baseURL  string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "homectl",
		Short: "Home automation admin console controller",
		Long: `homectl drives the home automation admin console.

It talks to the console's fragment service: stepping device values,
switching devices on and off, and fetching modal fragments, with the
same optimistic update and revert rules the console applies.

  • serve    run a reference fragment service
  • step     increment or decrement a device value
  • toggle   switch a device on or off
  • open     fetch a new/edit/delete modal fragment`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", ".", "Directory containing homectl.json and .env")
	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "Fragment service URL (default from homectl.json)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		serveCmd(flags),
		stepCmd(flags),
		toggleCmd(flags),
		openCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig reads configuration and applies command-line overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(f.dir)
	if err != nil {
		return nil, err
	}
	if f.baseURL != "" {
		cfg.BaseURL = f.baseURL
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newConsole builds a console whose alerts and logs go to the command's
// error stream.
func (f *globalFlags) newConsole(cmd *cobra.Command) (*homectl.Console, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	return homectl.New(*cfg,
		homectl.WithLogger(newLogger(cfg, cmd.ErrOrStderr())),
		homectl.WithNotifier(notify.NewWriter(cmd.ErrOrStderr())),
	)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
