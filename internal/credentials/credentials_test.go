// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePrefersEnv(t *testing.T) {
	t.Setenv("NEON_API_KEY", "napi_from_env")
	key, src := Resolve()
	if key != "napi_from_env" {
		t.Errorf("key = %q, want napi_from_env", key)
	}
	if src != SourceEnv {
		t.Errorf("source = %q, want %q", src, SourceEnv)
	}
}

func TestResolveTrimsWhitespace(t *testing.T) {
	t.Setenv("NEON_API_KEY", "  napi_padded \n")
	key, _ := Resolve()
	if key != "napi_padded" {
		t.Errorf("key = %q, want napi_padded", key)
	}
}

func TestFromNeonctl(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "valid credentials",
			content: `{"access_token":"oauth-token-123","refresh_token":"r"}`,
			want:    "oauth-token-123",
		},
		{
			name:    "invalid json",
			content: `not-json`,
			wantErr: true,
		},
		{
			name:    "missing token field",
			content: `{"refresh_token":"r"}`,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			got, err := FromNeonctl(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromNeonctl() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FromNeonctl() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromNeonctlMissingFile(t *testing.T) {
	_, err := FromNeonctl(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
