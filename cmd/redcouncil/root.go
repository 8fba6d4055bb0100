package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sherifkozman/red-council/internal/config"
)

var (
	flagConfigFile string
	flagHomeDir    string
	flagDebug      bool

	// cfg is loaded by loadConfig before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "redcouncil",
	Short: "Red Council - adversarial security testing for LLMs",
	Long: `Red Council orchestrates adversarial security testing campaigns
against LLM targets. A campaign runs a selected set of attack templates
sequentially, records which attacks the target resisted, and persists its
progress so an interrupted run can be resumed later.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	home := flagHomeDir
	if home == "" {
		home = os.Getenv("REDCOUNCIL_HOME")
	}
	if home != "" {
		os.Setenv("REDCOUNCIL_HOME", home)
	}

	path := flagConfigFile
	if path == "" {
		path = filepath.Join(configHomeDir(), "settings.yaml")
	}

	loaded, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(path)
	if err != nil {
		return err
	}
	if flagDebug {
		loaded.Core.Debug = true
		loaded.Logging.Level = "debug"
	}
	cfg = loaded

	slog.SetDefault(newLogger(cfg.Logging))
	return nil
}

func configHomeDir() string {
	if flagHomeDir != "" {
		return flagHomeDir
	}
	if dir := os.Getenv("REDCOUNCIL_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".redcouncil"
	}
	return filepath.Join(home, ".redcouncil")
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "Path to settings file")
	rootCmd.PersistentFlags().StringVar(&flagHomeDir, "home", "", "Red Council home directory")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(historyCmd)
}
