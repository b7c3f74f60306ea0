// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package neon

// Project is a Neon project as exposed to daemon clients.
// All fields are owned by the upstream service; the daemon only forwards them.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RegionID  string `json:"region_id,omitempty"`
	PgVersion int    `json:"pg_version,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Branch is a Neon branch within a project.
type Branch struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Primary   bool   `json:"primary"`
	State     string `json:"state,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Database is a database within a branch.
type Database struct {
	ID        int64  `json:"id"`
	BranchID  string `json:"branch_id"`
	Name      string `json:"name"`
	OwnerName string `json:"owner_name,omitempty"`
}

// Endpoint is a compute endpoint serving a branch.
type Endpoint struct {
	ID       string `json:"id"`
	Host     string `json:"host"`
	BranchID string `json:"branch_id"`
}

// QueryResult is a normalized SQL result. Column order is preserved from the
// upstream response and each row is ordered to match Columns. Transient;
// lives for one request only.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnInfo describes one column of a table schema.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableInfo identifies a table by schema and name.
type TableInfo struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}
