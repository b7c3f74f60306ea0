// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package neon implements the client for the Neon control-plane HTTP API.
// It defines the API contract the daemon depends on plus an HTTP-based
// implementation carrying the stored credential on every call. All failures
// are normalized into the daemon's typed error kinds so the dispatcher can
// translate them onto the wire without inspecting transport details.
package neon

import "context"

// API defines the upstream operations the daemon depends on.
// Implementations may call the real control plane or provide mocks for tests.
type API interface {
	// Ping performs a lightweight authenticated probe of the control plane.
	Ping(ctx context.Context) error
	// ListProjects lists projects visible to the credential, order preserved
	// from upstream. limit <= 0 applies the upstream default.
	ListProjects(ctx context.Context, limit int) ([]Project, error)
	// GetProject fetches a single project.
	GetProject(ctx context.Context, projectID string) (Project, error)
	// ListBranches lists branches of a project, order preserved from upstream.
	ListBranches(ctx context.Context, projectID string) ([]Branch, error)
	// ListDatabases lists databases on a branch.
	ListDatabases(ctx context.Context, projectID, branchID string) ([]Database, error)
	// ListEndpoints lists compute endpoints of a project.
	ListEndpoints(ctx context.Context, projectID string) ([]Endpoint, error)
	// CreateBranch creates a branch; name and parentID may be empty.
	CreateBranch(ctx context.Context, projectID, name, parentID string) (Branch, error)
	// DeleteBranch deletes a branch.
	DeleteBranch(ctx context.Context, projectID, branchID string) error
	// ConnectionURI returns the Postgres connection URI for a branch database.
	ConnectionURI(ctx context.Context, projectID, branchID, database string, pooled bool) (string, error)
	// GetUser returns the account behind the credential, passed through as-is.
	GetUser(ctx context.Context) (map[string]any, error)
	// RunSQL executes sql against the branch endpoint host over Neon's
	// SQL-over-HTTP interface and normalizes the result. Never retried:
	// statements may have side effects.
	RunSQL(ctx context.Context, host, database, sql string) (QueryResult, error)
}
