// Package main provides the pubmerge CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/pubmerge/internal/config"
	"github.com/matsen/pubmerge/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configPath  string
	logLevel    string

	// Set by loadSettings before any command runs.
	appConfig *config.Config
	logger    zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "pubmerge",
	Short: "Merge publication lists and remove duplicates",
	Long: `pubmerge merges publication records from several sources and removes
duplicates within each batch (by default, each author).

Records sharing a DOI or a normalized title are resolved automatically by
source priority. In approximate mode, close titles are grouped for review.

Settings come from ~/.config/pubmerge/config.yml, PUBMERGE_* environment
variables (a .env file is read if present), and flags, in increasing order
of precedence. All commands output JSON by default.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/pubmerge/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, config.KeyLogLevel, "", "Log level: trace, debug, info, warn, error, disabled")
	rootCmd.Version = Version
}

// loadSettings layers the config file, environment, and flags of the
// command being run into appConfig, then builds the logger.
func loadSettings(cmd *cobra.Command, _ []string) error {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if err := config.Overlay(cfg, v); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appConfig = cfg
	logger = logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  os.Getenv("PUBMERGE_LOG_FORMAT"),
		NoColor: os.Getenv("NO_COLOR") != "",
	})
	cmd.SetContext(logging.WithLogger(cmd.Context(), &logger))
	return nil
}
