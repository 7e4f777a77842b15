package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fusionn-dub/internal/config"
	"github.com/fusionn-dub/internal/fileops"
	"github.com/fusionn-dub/internal/version"
	"github.com/fusionn-dub/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           version.Name,
		Short:         "Dub videos into another language",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfig, "Configuration file path (env CONFIG_PATH)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newDubCommand(opts))
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func isDev() bool {
	return os.Getenv("ENV") != "production"
}

func initLogger() {
	logger.Init(isDev())
}

// loadConfig reads path once. A missing file falls back to defaults and
// environment.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			logger.Warnf("⚠️ Config file %s not found, using defaults + environment", path)
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func ensureDirectories(folders config.FoldersConfig) error {
	dirs := []string{
		folders.Uploads,
		folders.Temp,
		folders.Output,
	}

	for _, dir := range dirs {
		if err := fileops.EnsureDir(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return nil
}
