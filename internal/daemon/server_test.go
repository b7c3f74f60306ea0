// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fgp/neon/internal/config"
	"fgp/neon/internal/health"
	"fgp/neon/internal/neon"
	"fgp/neon/internal/protocol"
	"fgp/neon/internal/service"
)

// stubAPI satisfies neon.API for daemon-level tests; only the methods a
// test exercises are overridden.
type stubAPI struct {
	runSQL func(ctx context.Context, host, database, sql string) (neon.QueryResult, error)
}

func (s *stubAPI) Ping(ctx context.Context) error { return nil }

func (s *stubAPI) ListProjects(ctx context.Context, limit int) ([]neon.Project, error) {
	return []neon.Project{{ID: "proj-1", Name: "demo"}}, nil
}

func (s *stubAPI) GetProject(ctx context.Context, projectID string) (neon.Project, error) {
	return neon.Project{ID: projectID}, nil
}

func (s *stubAPI) ListBranches(ctx context.Context, projectID string) ([]neon.Branch, error) {
	return []neon.Branch{{ID: "br-main", Name: "main", Primary: true}}, nil
}

func (s *stubAPI) ListDatabases(ctx context.Context, projectID, branchID string) ([]neon.Database, error) {
	return nil, nil
}

func (s *stubAPI) ListEndpoints(ctx context.Context, projectID string) ([]neon.Endpoint, error) {
	return []neon.Endpoint{{ID: "ep-1", Host: "ep-1.neon.tech", BranchID: "br-main"}}, nil
}

func (s *stubAPI) CreateBranch(ctx context.Context, projectID, name, parentID string) (neon.Branch, error) {
	return neon.Branch{}, nil
}

func (s *stubAPI) DeleteBranch(ctx context.Context, projectID, branchID string) error { return nil }

func (s *stubAPI) ConnectionURI(ctx context.Context, projectID, branchID, database string, pooled bool) (string, error) {
	return "", nil
}

func (s *stubAPI) GetUser(ctx context.Context) (map[string]any, error) { return nil, nil }

func (s *stubAPI) RunSQL(ctx context.Context, host, database, sql string) (neon.QueryResult, error) {
	if s.runSQL != nil {
		return s.runSQL(ctx, host, database, sql)
	}
	return neon.QueryResult{}, nil
}

func startTestServer(t *testing.T, api neon.API) *Server {
	t.Helper()
	state := health.NewState()
	state.Record(true)
	svc := service.New(api, config.NeonConfig{Database: "neondb"}, true, state, "test")

	sock := filepath.Join(t.TempDir(), "daemon.sock")
	srv := NewServer(svc, sock, 8)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	return srv
}

// call dials the socket, sends one request line and reads one response.
func call(t *testing.T, sock string, req protocol.Request) protocol.Response {
	t.Helper()
	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer conn.Close()

	line, err := protocol.Encode(req)
	require.NoError(t, err)
	_, err = conn.Write(line)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestHealthRespondsQuickly(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})

	start := time.Now()
	resp := call(t, srv.SocketPath(), protocol.Request{ID: "r1", V: 1, Method: "health"})
	elapsed := time.Since(start)

	assert.True(t, resp.OK)
	assert.Less(t, elapsed, 50*time.Millisecond)

	result := resp.Result.(map[string]any)
	assert.Equal(t, "healthy", result["status"])
}

func TestUnknownMethod(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})
	resp := call(t, srv.SocketPath(), protocol.Request{ID: "r1", V: 1, Method: "neon.frobnicate"})
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown_method", resp.Error)
}

func TestUnsupportedVersion(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})
	resp := call(t, srv.SocketPath(), protocol.Request{ID: "r1", V: 99, Method: "health"})
	assert.False(t, resp.OK)
	assert.Equal(t, "unsupported_version", resp.Error)
}

func TestMissingParameterKeepsConnectionNormal(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})
	resp := call(t, srv.SocketPath(), protocol.Request{ID: "r1", V: 1, Method: "neon.branches"})
	assert.False(t, resp.OK)
	assert.Equal(t, "missing_parameter:project_id", resp.Error)
}

func TestMalformedWithRecoverableID(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})

	conn, err := net.Dial("unix", srv.SocketPath())
	require.NoError(t, err)
	defer conn.Close()

	// Valid JSON object, invalid envelope: "v" is a string.
	_, err = conn.Write([]byte(`{"id":"r7","v":"one","method":"health"}` + "\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	raw, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "malformed_envelope", resp.Error)
}

func TestMalformedWithoutIDClosesSilently(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})

	conn, err := net.Dial("unix", srv.SocketPath())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("this is not json\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = bufio.NewReader(conn).ReadBytes('\n')
	assert.Error(t, err, "expected connection close without a response")
}

func TestConcurrentQueriesDoNotInterleave(t *testing.T) {
	api := &stubAPI{
		runSQL: func(ctx context.Context, host, database, sql string) (neon.QueryResult, error) {
			// Slow down to force overlap between the two workers.
			time.Sleep(50 * time.Millisecond)
			return neon.QueryResult{Columns: []string{"echo"}, Rows: [][]any{{sql}}}, nil
		},
	}
	srv := startTestServer(t, api)

	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sentinel := fmt.Sprintf("select %d", i)
			params, _ := json.Marshal(map[string]string{
				"project_id": "proj-1",
				"sql":        sentinel,
			})
			resp := call(t, srv.SocketPath(), protocol.Request{
				ID: fmt.Sprintf("r%d", i), V: 1, Method: "neon.query", Params: params,
			})
			if !resp.OK {
				t.Errorf("query %d failed: %s", i, resp.Error)
				return
			}
			rows := resp.Result.(map[string]any)["rows"].([]any)
			results[i] = rows[0].([]any)[0].(string)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		assert.Equal(t, fmt.Sprintf("select %d", i), results[i])
	}
}

func TestStopRemovesSocketFile(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})
	sock := srv.SocketPath()

	_, err := os.Stat(sock)
	require.NoError(t, err)

	srv.Stop()
	_, err = os.Stat(sock)
	assert.True(t, os.IsNotExist(err))

	// idempotent
	srv.Stop()
}

func TestSocketPermissionsOwnerOnly(t *testing.T) {
	srv := startTestServer(t, &stubAPI{})
	info, err := os.Stat(srv.SocketPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPIDFileRoundTrip(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "daemon.sock")
	require.NoError(t, WritePID(sock))
	t.Cleanup(func() { RemovePID(sock) })

	pid, err := ReadPID(sock)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	RemovePID(sock)
	_, err = ReadPID(sock)
	assert.Error(t, err)
}
