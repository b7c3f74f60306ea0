// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// Level is a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current = LevelInfo

// SetLevel sets the minimum severity that gets printed.
// Unknown names fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		current = LevelDebug
		pterm.EnableDebugMessages()
	case "warn", "warning":
		current = LevelWarn
	case "error":
		current = LevelError
	default:
		current = LevelInfo
	}
}

// Debugf logs a debug message with sensitive values masked.
func Debugf(format string, args ...any) {
	if current > LevelDebug {
		return
	}
	pterm.Debug.Println(Mask(fmt.Sprintf(format, args...)))
}

// Infof logs an informational message with sensitive values masked.
func Infof(format string, args ...any) {
	if current > LevelInfo {
		return
	}
	pterm.Info.Println(Mask(fmt.Sprintf(format, args...)))
}

// Warnf logs a warning with sensitive values masked.
func Warnf(format string, args ...any) {
	if current > LevelWarn {
		return
	}
	pterm.Warning.Println(Mask(fmt.Sprintf(format, args...)))
}

// Errorf logs an error with sensitive values masked.
func Errorf(format string, args ...any) {
	pterm.Error.Println(Mask(fmt.Sprintf(format, args...)))
}
