// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the FGP Neon daemon.
// It implements subcommands for daemon lifecycle management, authentication,
// and ad-hoc method calls using the Cobra CLI framework.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"fgp/neon/internal/config"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	socketFlag  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "fgp-neon",
	Short:         "FGP daemon for Neon serverless Postgres",
	Long:          `fgp-neon runs a local daemon that exposes Neon serverless Postgres over a Unix domain socket, proxying authenticated calls to the Neon control-plane API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("fgp-neon %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Daemon socket path (default ~/.fgp/services/neon/daemon.sock)")
}

// resolveSocketPath picks the socket path from the --socket flag, then the
// configuration (which honors FGP_NEON_SOCKET), then the per-user default.
func resolveSocketPath() (string, error) {
	if socketFlag != "" {
		return socketFlag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.SocketPath()
}

// cmdTimeout bounds a command's upstream calls.
func cmdTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), d)
}
