// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package credentials resolves the Neon API key the daemon authenticates with.
// Resolution order: NEON_API_KEY environment variable, then the OS keychain
// (populated by `fgp-neon login`), then the neonctl OAuth token from
// ~/.config/neonctl/credentials.json. The key is read once at daemon startup
// and held in memory only; a daemon started without any credential still runs,
// and upstream-dependent methods report missing_credential per call.
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"fgp/neon/internal/keychain"
	"fgp/neon/internal/logging"
)

// Source indicates where a resolved credential came from.
type Source string

const (
	SourceEnv      Source = "env"
	SourceKeychain Source = "keychain"
	SourceNeonctl  Source = "neonctl"
	SourceNone     Source = "none"
)

// Resolve returns the API key and where it was found. An empty key with
// SourceNone means no credential is available anywhere; that is not an error.
func Resolve() (string, Source) {
	if key := strings.TrimSpace(os.Getenv("NEON_API_KEY")); key != "" {
		return key, SourceEnv
	}

	if km, err := keychain.GetManager(); err == nil {
		key, err := km.LoadAPIKey()
		if err == nil && key != "" {
			return key, SourceKeychain
		}
	} else {
		logging.Debugf("keychain unavailable: %v", err)
	}

	path, err := NeonctlCredentialsPath()
	if err == nil {
		if key, err := FromNeonctl(path); err == nil && key != "" {
			return key, SourceNeonctl
		}
	}

	return "", SourceNone
}

// NeonctlCredentialsPath returns the neonctl credentials file location.
func NeonctlCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "neonctl", "credentials.json"), nil
}

// FromNeonctl reads the OAuth access token from a neonctl credentials file.
func FromNeonctl(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var creds struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}
