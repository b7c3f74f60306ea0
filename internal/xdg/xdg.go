// Package xdg provides helpers to resolve XDG Base Directory paths for fgp-neon.
// It implements the XDG Base Directory specification for determining appropriate
// locations for configuration files and state data, plus the traditional
// ~/.fgp/services/<name> directory that holds per-service daemon sockets.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and ensures proper permissions for security-sensitive
// directories like configuration storage.
package xdg

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the XDG config directory for fgp-neon.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/fgp-neon when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "fgp-neon")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

// StateDir returns the XDG state directory for fgp-neon.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/fgp-neon when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "fgp-neon")
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}

// ServiceDir returns the fgp service directory for the named service
// (~/.fgp/services/<name>), creating it with private permissions if missing.
// The daemon socket lives here so other fgp tooling can find it.
func ServiceDir(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".fgp", "services", name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultSocketPath returns the default daemon socket path for the neon
// service. The FGP_NEON_SOCKET environment variable overrides it.
func DefaultSocketPath() (string, error) {
	if p := os.Getenv("FGP_NEON_SOCKET"); p != "" {
		return p, nil
	}
	dir, err := ServiceDir("neon")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "daemon.sock"), nil
}
