// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package protocol defines the FGP request/response envelopes and the
// newline-delimited JSON codec used on the daemon's Unix socket.
// One JSON object per line, UTF-8, request and response alike.
package protocol

import (
	"encoding/json"

	errs "fgp/neon/internal/errors"
)

// Version is the protocol version this daemon speaks.
const Version = 1

// VersionSupported reports whether v is a protocol version the daemon accepts.
func VersionSupported(v int) bool { return v == Version }

// Request is one client call. ID is an opaque client-generated correlation
// token; Params carries method-specific arguments as raw JSON so handlers can
// decode them into typed structs at the dispatch boundary.
type Request struct {
	ID     string          `json:"id"`
	V      int             `json:"v"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the daemon's answer to one Request. Exactly one of Result and
// Error is populated, determined by OK.
type Response struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OKResponse builds a success response around result.
func OKResponse(result any) Response {
	return Response{OK: true, Result: result}
}

// ErrResponse builds a failure response carrying the wire form of err.
func ErrResponse(err error) Response {
	return Response{OK: false, Error: errs.Wire(err)}
}
