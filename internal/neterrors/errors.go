// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package neterrors provides user-friendly error handling for local daemon
// connections. It detects the common failure modes of a Unix socket client
// (daemon not running, stale socket, permissions, timeouts) and displays
// actionable troubleshooting information.
package neterrors

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// FormatSocketError converts a transport error from the daemon client into a
// user-friendly message and returns a wrapped error for logging.
func FormatSocketError(err error, context string) error {
	if err == nil {
		return nil
	}
	displayErrorMessage(err, context)
	return fmt.Errorf("daemon connection error: %w", err)
}

func displayErrorMessage(err error, context string) {
	switch {
	case isNotRunningError(err):
		showNotRunningError(context)
	case isConnectionRefusedError(err):
		showStaleSocketError(context)
	case isPermissionError(err):
		showPermissionError(context)
	case isTimeoutError(err):
		showTimeoutError(context)
	default:
		showGenericError(context, err.Error())
	}
}

// isNotRunningError checks whether the socket file does not exist.
func isNotRunningError(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOENT)
}

// isConnectionRefusedError checks for a socket file nobody listens on.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNREFUSED)
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

func showNotRunningError(context string) {
	pterm.Printf("🔌 Daemon is not running (%s)\n", context)
	pterm.Println()
	pterm.Println("The daemon socket does not exist. Start the daemon with:")
	pterm.Println("  fgp-neon start")
	pterm.Println()
}

func showStaleSocketError(context string) {
	pterm.Printf("🔌 Cannot connect to the daemon (%s)\n", context)
	pterm.Println()
	pterm.Println("A socket file exists but no daemon is listening. This usually")
	pterm.Println("means a previous daemon exited without cleanup. Try:")
	pterm.Println("  fgp-neon stop")
	pterm.Println("  fgp-neon start")
	pterm.Println()
}

func showPermissionError(context string) {
	pterm.Printf("🔒 Permission denied (%s)\n", context)
	pterm.Println()
	pterm.Println("The daemon socket belongs to another user. The socket is")
	pterm.Println("owner-only; run the CLI as the user that started the daemon.")
	pterm.Println()
}

func showTimeoutError(context string) {
	pterm.Printf("⏱️  Daemon did not respond in time (%s)\n", context)
	pterm.Println()
	pterm.Println("The daemon accepted the connection but never answered.")
	pterm.Println("An upstream call may be stuck; check daemon logs or restart:")
	pterm.Println("  fgp-neon stop && fgp-neon start")
	pterm.Println()
}

func showGenericError(context string, detail string) {
	pterm.Printf("❌ Daemon call failed (%s)\n", context)
	pterm.Println()
	pterm.Printf("Details: %s\n", detail)
	pterm.Println()
}
