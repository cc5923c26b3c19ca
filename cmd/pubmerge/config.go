package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/pubmerge/internal/config"
)

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
	Long: `Show or create the configuration file.

Usage:
  pubmerge config show          # Effective settings after env and flags
  pubmerge config init          # Write the defaults to the config file
  pubmerge config init --force  # Overwrite an existing file

Keys:
  mode              standard or approximate
  thresholds.match  Match threshold percent (90-100)
  thresholds.review Review threshold percent (80-96, below match)
  canonical_source  Source whose internal duplicates are never removed
  priority          Ordered list of {source, origin_detail}
  group_by          Extra field that partitions records into batches
  page_size         Group members shown per review page`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return showConfig(cmd.OutOrStdout(), appConfig)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		written, err := initConfig(path, configInitForce)
		if err != nil {
			return err
		}
		if humanOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", written)
			return nil
		}
		return outputJSON(cmd.OutOrStdout(), StatusResponse{Status: "created", Path: written})
	},
}

// ConfigResponse is the JSON form of config show.
type ConfigResponse struct {
	Mode            string `json:"mode"`
	MatchThreshold  int    `json:"match_threshold"`
	ReviewThreshold int    `json:"review_threshold"`
	CanonicalSource string `json:"canonical_source"`
	Priority        string `json:"priority"`
	GroupBy         string `json:"group_by"`
	PageSize        int    `json:"page_size"`
	LogLevel        string `json:"log_level,omitempty"`
}

func showConfig(w io.Writer, cfg *config.Config) error {
	if humanOutput {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return outputJSON(w, ConfigResponse{
		Mode:            cfg.Mode,
		MatchThreshold:  cfg.Thresholds.Match,
		ReviewThreshold: cfg.Thresholds.Review,
		CanonicalSource: cfg.CanonicalSource,
		Priority:        config.FormatPriority(cfg.Priority),
		GroupBy:         cfg.GroupBy,
		PageSize:        cfg.PageSize,
		LogLevel:        cfg.LogLevel,
	})
}

// initConfig writes the defaults to path and returns the expanded path.
func initConfig(path string, force bool) (string, error) {
	if path == "" {
		return "", withCode(ExitConfigError, errors.New("cannot determine config path; pass --config"))
	}
	path = config.ExpandPath(path)
	if _, err := os.Stat(path); err == nil && !force {
		return "", withCode(ExitConfigError, fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}
	if err := config.Default().Save(path); err != nil {
		return "", err
	}
	return path, nil
}
