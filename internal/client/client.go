// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package client is the daemon's local RPC client: one Unix socket dial per
// call, one request line out, one response line back.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"fgp/neon/internal/protocol"
)

// DefaultTimeout bounds a whole call including the upstream round trip.
const DefaultTimeout = 60 * time.Second

// Client calls a running daemon over its Unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// Option adjusts client construction.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for the daemon at socketPath.
func New(socketPath string, opts ...Option) *Client {
	c := &Client{socketPath: socketPath, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends one request and returns the decoded response envelope.
// Transport failures (daemon not running, socket missing) surface as errors;
// a daemon-side failure comes back as a Response with OK=false.
func (c *Client) Call(ctx context.Context, method string, params any) (protocol.Response, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return protocol.Response{}, fmt.Errorf("encode params: %w", err)
		}
		raw = b
	}

	req := protocol.Request{
		ID:     uuid.NewString(),
		V:      protocol.Version,
		Method: method,
		Params: raw,
	}
	line, err := protocol.Encode(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("encode request: %w", err)
	}

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("daemon not reachable at %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	if _, err := conn.Write(line); err != nil {
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	rawResp, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return protocol.Response{}, fmt.Errorf("read response: %w", err)
	}
	resp, _, err := protocol.DecodeResponse(rawResp)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Ping performs a health call and reports whether the daemon answered.
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.Call(ctx, "health", nil)
	return err == nil && resp.OK
}
