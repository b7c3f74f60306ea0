// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package neterrors

import (
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"socket missing", &os.PathError{Op: "dial", Err: syscall.ENOENT}, isNotRunningError, true},
		{"refused via OpError", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, isConnectionRefusedError, true},
		{"refused via message", errors.New("dial unix: connection refused"), isConnectionRefusedError, true},
		{"permission", &os.PathError{Op: "dial", Err: syscall.EACCES}, isPermissionError, true},
		{"deadline", errors.New("read unix: i/o timeout"), isTimeoutError, true},
		{"unrelated", errors.New("boom"), isNotRunningError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatSocketErrorNil(t *testing.T) {
	if err := FormatSocketError(nil, "checking status"); err != nil {
		t.Errorf("nil error must pass through, got %v", err)
	}
}

func TestFormatSocketErrorWraps(t *testing.T) {
	cause := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	err := FormatSocketError(cause, "checking status")
	if !errors.Is(err, cause.Err) {
		t.Errorf("formatted error must wrap the cause")
	}
}
