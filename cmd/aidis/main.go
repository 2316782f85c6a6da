// Package main provides the CLI entry point for the AIDIS development
// intelligence daemon.
//
// AIDIS exposes a fixed catalog of tools to AI coding agents over two
// transports: line-delimited JSON-RPC on stdio and per-tool HTTP POST
// endpoints. Agents use it to store and semantically search development
// context, record technical decisions, manage tasks and switch between
// isolated projects.
//
// # Basic Usage
//
// Start the daemon:
//
//	aidis serve --config aidis.yaml
//
// # Environment Variables
//
//   - AIDIS_CONFIG: Path to configuration file
//   - AIDIS_DATABASE_HOST/PORT/NAME/USER/PASSWORD: database connection
//   - AIDIS_SKIP_DATABASE, AIDIS_SKIP_BACKGROUND, AIDIS_SKIP_STDIO:
//     startup step opt-outs
//   - AIDIS_LOG_LEVEL, AIDIS_MCP_DEBUG: logging controls
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/aidis/internal/config"
	"github.com/haasonsaas/aidis/internal/lifecycle"
	"github.com/haasonsaas/aidis/internal/observability"
)

// version is set by the build via -ldflags.
var version = "2.0.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aidis",
		Short:         "AIDIS development intelligence daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("AIDIS_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(observability.LogConfig{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
			})

			manager := lifecycle.NewManager(cfg, logger, version, nil)
			if err := manager.Run(context.Background()); err != nil {
				var singleton *lifecycle.SingletonError
				if errors.As(err, &singleton) {
					fmt.Fprintln(os.Stderr, singleton.Error())
					os.Exit(1)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aidis %s\n", version)
		},
	}
}
