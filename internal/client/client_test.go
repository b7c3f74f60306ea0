// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fgp/neon/internal/protocol"
)

// fakeDaemon answers each connection with the response produced by handler.
func fakeDaemon(t *testing.T, handler func(protocol.Request) protocol.Response) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "daemon.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				raw, err := bufio.NewReader(conn).ReadBytes('\n')
				if err != nil {
					return
				}
				var req protocol.Request
				if err := json.Unmarshal(raw, &req); err != nil {
					return
				}
				line, _ := protocol.Encode(handler(req))
				conn.Write(line)
			}(conn)
		}
	}()
	return sock
}

func TestCallSuccess(t *testing.T) {
	var gotMethod, gotID string
	sock := fakeDaemon(t, func(req protocol.Request) protocol.Response {
		gotMethod, gotID = req.Method, req.ID
		return protocol.OKResponse(map[string]any{"status": "healthy"})
	})

	c := New(sock)
	resp, err := c.Call(context.Background(), "health", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "health", gotMethod)
	assert.NotEmpty(t, gotID, "request id must be generated")

	result := resp.Result.(map[string]any)
	assert.Equal(t, "healthy", result["status"])
}

func TestCallSendsParams(t *testing.T) {
	sock := fakeDaemon(t, func(req protocol.Request) protocol.Response {
		var p map[string]string
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return protocol.Response{OK: false, Error: "bad params"}
		}
		if p["project_id"] != "proj-1" {
			return protocol.Response{OK: false, Error: "wrong project"}
		}
		return protocol.OKResponse(nil)
	})

	c := New(sock)
	resp, err := c.Call(context.Background(), "neon.branches", map[string]string{"project_id": "proj-1"})
	require.NoError(t, err)
	assert.True(t, resp.OK, resp.Error)
}

func TestCallDaemonError(t *testing.T) {
	sock := fakeDaemon(t, func(req protocol.Request) protocol.Response {
		return protocol.Response{OK: false, Error: "unknown_method"}
	})

	c := New(sock)
	resp, err := c.Call(context.Background(), "nope", nil)
	require.NoError(t, err, "daemon-side errors are not transport errors")
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown_method", resp.Error)
}

func TestCallNoDaemon(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.sock"), WithTimeout(time.Second))
	_, err := c.Call(context.Background(), "health", nil)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	sock := fakeDaemon(t, func(req protocol.Request) protocol.Response {
		return protocol.OKResponse(map[string]any{"status": "healthy"})
	})
	assert.True(t, New(sock).Ping(context.Background()))
	assert.False(t, New(filepath.Join(t.TempDir(), "x.sock")).Ping(context.Background()))
}
