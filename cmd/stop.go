// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"syscall"
	"time"

	"fgp/neon/internal/client"
	"fgp/neon/internal/daemon"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// stopCmd represents the stop command. It asks the daemon to shut down over
// RPC and falls back to signalling the recorded pid when the socket is
// unresponsive, cleaning up stale socket and pid files either way.
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Long: `The stop command shuts the daemon down gracefully via its stop RPC.
If the daemon does not answer on the socket, it falls back to sending SIGTERM
to the pid recorded next to the socket file. Stale socket and pid files left
by a crashed daemon are removed.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		sock, err := resolveSocketPath()
		if err != nil {
			return err
		}

		c := client.New(sock, client.WithTimeout(3*time.Second))
		if resp, err := c.Call(cmd.Context(), "stop", nil); err == nil && resp.OK {
			waitForExit(sock)
			pterm.Println("✅ Daemon stopped")
			return nil
		}

		// Socket unresponsive: signal the recorded pid instead.
		pid, err := daemon.ReadPID(sock)
		if err != nil {
			cleanupStale(sock)
			pterm.Println("Daemon is not running")
			return nil
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			// Process already gone; just sweep the leftovers.
			cleanupStale(sock)
			pterm.Println("Daemon is not running (removed stale files)")
			return nil
		}
		waitForExit(sock)
		cleanupStale(sock)
		pterm.Printf("✅ Daemon stopped (signalled pid %d)\n", pid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

// waitForExit polls until the socket file disappears or a short grace
// period elapses.
func waitForExit(sock string) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(sock); os.IsNotExist(err) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// cleanupStale removes socket and pid files that no live daemon owns.
func cleanupStale(sock string) {
	if err := os.Remove(sock); err != nil && !os.IsNotExist(err) {
		pterm.Printf("⚠️  Could not remove socket file %s: %v\n", sock, err)
	}
	daemon.RemovePID(sock)
}
