// Package main provides the botlang CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/everydev1618/botlang"
	"github.com/everydev1618/botlang/config"
	"github.com/everydev1618/botlang/internal/logger"
	"github.com/everydev1618/botlang/internal/trace"
)

var version = "dev"

var (
	configPath string
	logLevel   string

	cfg           *config.Config
	traceShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:           "botlang",
	Short:         "Run conversational bot scripts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.Init(cfg.LogLevel)

		if cfg.Tracing.Enabled {
			traceShutdown, err = trace.Init(cmd.Context(), trace.Config{
				Endpoint: cfg.Tracing.Endpoint,
				URLPath:  cfg.Tracing.URLPath,
				APIKey:   cfg.Tracing.APIKey,
				Insecure: cfg.Tracing.Insecure,
			})
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if traceShutdown == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traceShutdown(ctx); err != nil {
			slog.Warn("trace shutdown failed", "error", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "botlang %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("BOTLANG_CONFIG"), "config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, emitCmd, sendCmd, validateCmd, serveCmd, replCmd, toolsCmd, versionCmd)
}

// newRuntime builds a runtime from the loaded config and loads files.
func newRuntime(files []string, opts ...botlang.Option) (*botlang.Runtime, error) {
	rt, err := botlang.FromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := rt.LoadFile(f); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
