// Package config loads and stores daemon configuration in the XDG config dir.
// Only non-secret settings are kept here; the API key goes to the OS keychain
// or environment (see internal/credentials).
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"fgp/neon/internal/xdg"
)

// Config holds non-sensitive daemon settings.
type Config struct {
	LogLevel string       `json:"log_level"`
	Socket   SocketConfig `json:"socket"`
	Neon     NeonConfig   `json:"neon"`
}

// SocketConfig holds Unix socket listener settings.
type SocketConfig struct {
	// Path is the socket path; empty means the per-user default
	// (~/.fgp/services/neon/daemon.sock).
	Path string `json:"path"`
	// MaxConnections caps concurrently serviced connections.
	MaxConnections int `json:"max_connections"`
}

// NeonConfig holds upstream API settings.
type NeonConfig struct {
	// BaseURL is the control-plane API base (default Neon console API v2).
	BaseURL string `json:"base_url"`
	// OrgID scopes project listings; required by the Neon API.
	OrgID string `json:"org_id"`
	// DefaultProject is used when a request omits project_id.
	DefaultProject string `json:"default_project"`
	// Database is the database name used when a request omits it.
	Database string `json:"database"`
}

// DefaultBaseURL is the Neon control-plane API endpoint.
const DefaultBaseURL = "https://console.neon.tech/api/v2"

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func defaults() Config {
	return Config{
		LogLevel: "info",
		Socket:   SocketConfig{MaxConnections: 32},
		Neon:     NeonConfig{BaseURL: DefaultBaseURL, Database: "neondb"},
	}
}

// Load reads configuration; missing file returns defaults.
// Environment variables override file values afterwards.
func Load() (Config, error) {
	c := defaults()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&c)
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if c.Neon.BaseURL == "" {
		c.Neon.BaseURL = DefaultBaseURL
	}
	if c.Neon.Database == "" {
		c.Neon.Database = "neondb"
	}
	if c.Socket.MaxConnections <= 0 {
		c.Socket.MaxConnections = 32
	}
	applyEnv(&c)
	return c, nil
}

// applyEnv overlays environment overrides onto c.
func applyEnv(c *Config) {
	if v := os.Getenv("NEON_ORG_ID"); v != "" {
		c.Neon.OrgID = v
	}
	if v := os.Getenv("NEON_PROJECT_ID"); v != "" {
		c.Neon.DefaultProject = v
	}
	if v := os.Getenv("FGP_NEON_SOCKET"); v != "" {
		c.Socket.Path = v
	}
	if v := os.Getenv("FGP_NEON_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// SocketPath resolves the effective socket path, falling back to the
// per-user service directory default.
func (c Config) SocketPath() (string, error) {
	if c.Socket.Path != "" {
		return c.Socket.Path, nil
	}
	return xdg.DefaultSocketPath()
}
