// Package cmd holds the contractvigency command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/pkg/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "contractvigency",
		Short: "Contract vigency dashboard backend",
		Long: `contractvigency classifies public administration contracts by how close
they are to the end of their vigency and serves the resulting views.

Available subcommands:
  serve  - Run the HTTP API
  report - Evaluate one spreadsheet and print the views`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(opts), newReportCmd(opts))
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the config file and installs the logger. A missing file
// at the default path falls back to built-in defaults.
func (o *rootOptions) loadConfig(cmd *cobra.Command, logOutput io.Writer) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
		config.GlobalConfig = cfg
	default:
		return nil, fmt.Errorf("failed to load config %s: %w", o.configPath, err)
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOutput,
	})
	slog.Debug("configuration loaded", "path", o.configPath)
	return cfg, nil
}
