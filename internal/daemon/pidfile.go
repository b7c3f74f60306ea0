// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PIDPath derives the pid file path from the socket path.
func PIDPath(socketPath string) string {
	return socketPath + ".pid"
}

// WritePID records the current process id next to the socket so a later
// "stop" can fall back to signalling when the socket is unresponsive.
func WritePID(socketPath string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(PIDPath(socketPath), []byte(pid+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// ReadPID returns the recorded daemon pid, or an error when the file is
// missing or unparseable.
func ReadPID(socketPath string) (int, error) {
	b, err := os.ReadFile(PIDPath(socketPath))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", PIDPath(socketPath))
	}
	return pid, nil
}

// RemovePID deletes the pid file; a missing file is not an error.
func RemovePID(socketPath string) {
	os.Remove(PIDPath(socketPath))
}
