// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package daemon runs the local RPC server: a Unix domain socket listener
// that hands each accepted connection to its own worker goroutine, so a slow
// upstream call on one connection never delays another.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fgp/neon/internal/logging"
	"fgp/neon/internal/service"
)

const defaultMaxConns = 32

// Server owns the Unix socket listener and the set of live connections.
type Server struct {
	svc      *service.Service
	path     string
	maxConns int

	listener *net.UnixListener
	wg       sync.WaitGroup
	sem      chan struct{}

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewServer creates a server bound to socketPath once Start is called.
func NewServer(svc *service.Service, socketPath string, maxConns int) *Server {
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	return &Server{
		svc:      svc,
		path:     socketPath,
		maxConns: maxConns,
		sem:      make(chan struct{}, maxConns),
		stopChan: make(chan struct{}),
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.path }

// Start binds the socket and launches the accept loop. Bind failures are
// fatal to daemon startup; everything after a successful bind is handled
// per connection.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	absPath, err := s.prepareSocketPath()
	if err != nil {
		return err
	}
	s.path = absPath

	// A stale socket file from a crashed daemon blocks the bind; remove it.
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket %s: %w", absPath, err)
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: absPath, Net: "unix"})
	if err != nil {
		return fmt.Errorf("bind unix socket %s: %w", absPath, err)
	}
	s.listener = listener

	// Owner-only: the socket is the daemon's entire access control.
	if err := os.Chmod(absPath, 0o600); err != nil {
		listener.Close()
		os.Remove(absPath)
		return fmt.Errorf("set socket permissions: %w", err)
	}

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	logging.Infof("listening on %s (max connections: %d)", absPath, s.maxConns)
	return nil
}

// Stop shuts the listener down, waits briefly for in-flight connections and
// removes the socket file. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		logging.Infof("stopping server")
		close(s.stopChan)
		if s.listener != nil {
			s.listener.Close()
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			logging.Warnf("timed out waiting for connections to drain")
		}

		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			logging.Warnf("remove socket file %s: %v", s.path, err)
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	})
}

// IsRunning reports whether the accept loop is active.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// prepareSocketPath resolves the socket path and creates its parent
// directory with owner-only permissions.
func (s *Server) prepareSocketPath() (string, error) {
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return "", fmt.Errorf("resolve socket path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o700); err != nil {
		return "", fmt.Errorf("create socket directory: %w", err)
	}
	return absPath, nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		default:
		}

		// Short deadline so the loop re-checks stopChan regularly.
		s.listener.SetDeadline(time.Now().Add(1 * time.Second))
		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Errorf("accept: %v", err)
			continue
		}

		select {
		case s.sem <- struct{}{}:
		default:
			logging.Warnf("connection limit reached, rejecting client")
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			handleConn(ctx, conn, s.svc)
		}()
	}
}
