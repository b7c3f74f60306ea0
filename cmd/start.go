// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fgp/neon/internal/client"
	"fgp/neon/internal/config"
	"fgp/neon/internal/credentials"
	"fgp/neon/internal/daemon"
	"fgp/neon/internal/health"
	"fgp/neon/internal/logging"
	"fgp/neon/internal/neon"
	"fgp/neon/internal/service"
	"fgp/neon/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var startForeground bool

// startCmd represents the start command, which launches the daemon.
// By default the daemon is detached into the background; --foreground keeps
// it attached to the terminal, which is the mode service managers should use.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Long: `The start command launches the fgp-neon daemon. The daemon binds a Unix
domain socket, resolves the Neon API credential, and begins serving requests.

Credential resolution order:
  1. NEON_API_KEY environment variable
  2. OS keychain (stored via "fgp-neon login")
  3. neonctl credentials file (~/.config/neonctl/credentials.json)

Without a credential the daemon still starts: health keeps answering, and
upstream methods fail with a missing_credential error until one is provided.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		sock, err := resolveSocketPath()
		if err != nil {
			return err
		}

		// Refuse a second daemon on the same socket.
		if client.New(sock, client.WithTimeout(2*time.Second)).Ping(cmd.Context()) {
			pterm.Printf("✅ Daemon already running on %s\n", sock)
			return nil
		}

		if startForeground {
			return runDaemon(cmd.Context(), sock)
		}
		return spawnBackground(sock)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().BoolVarP(&startForeground, "foreground", "f", false, "Run the daemon in the foreground")
}

// spawnBackground re-executes this binary detached in its own session, then
// waits briefly for the socket to come up.
func spawnBackground(sock string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	child := exec.Command(exe, "start", "--foreground", "--socket", sock)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil
	if logFile := openDaemonLog(); logFile != nil {
		defer logFile.Close()
		child.Stdout = logFile
		child.Stderr = logFile
	}
	if err := child.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	// The child outlives us; Release detaches the handle.
	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("detach daemon: %w", err)
	}

	c := client.New(sock, client.WithTimeout(time.Second))
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Ping(context.Background()) {
			pterm.Printf("✅ Daemon started on %s\n", sock)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not come up within 5s; try: fgp-neon start --foreground")
}

// openDaemonLog opens the daemon log file in the XDG state directory.
// Logging to a file is best-effort; the daemon runs fine without it.
func openDaemonLog() *os.File {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "daemon.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil
	}
	return f
}

// runDaemon is the daemon main loop: wire everything up, serve until a
// signal or an RPC stop arrives, then clean up.
func runDaemon(ctx context.Context, sock string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.SetLevel(cfg.LogLevel)

	apiKey, source := credentials.Resolve()
	if apiKey == "" {
		logging.Warnf("no Neon API key found; upstream methods will fail until one is configured")
	} else {
		logging.Infof("using Neon API key from %s", source)
	}

	api := neon.NewHTTP(cfg.Neon.BaseURL, apiKey, cfg.Neon.OrgID)
	state := health.NewState()
	svc := service.New(api, cfg.Neon, apiKey != "", state, Version)

	srv := daemon.NewServer(svc, sock, cfg.Socket.MaxConnections)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	svc.SetStopFunc(cancel)

	if err := srv.Start(ctx); err != nil {
		return err
	}
	if err := daemon.WritePID(srv.SocketPath()); err != nil {
		srv.Stop()
		return err
	}
	defer daemon.RemovePID(srv.SocketPath())

	// Background upstream probe keeps the health snapshot warm; no request
	// ever waits on it.
	go state.Monitor(ctx, health.DefaultInterval, api.Ping)

	logging.Infof("daemon ready (version %s)", Version)
	<-ctx.Done()

	srv.Stop()
	logging.Infof("daemon exited")
	return nil
}
