// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

import (
	"encoding/json"

	errs "fgp/neon/internal/errors"
)

// Per-method parameter structs. Params arrive as raw JSON on the envelope and
// are decoded into these at the dispatch boundary, so handlers never touch
// late-bound maps.

type projectParams struct {
	ProjectID string `json:"project_id"`
}

type branchesParams struct {
	ProjectID string `json:"project_id"`
}

type databasesParams struct {
	ProjectID string `json:"project_id"`
	Branch    string `json:"branch"`
}

type queryParams struct {
	SQL       string `json:"sql"`
	ProjectID string `json:"project_id"`
	Branch    string `json:"branch"`
	Database  string `json:"database"`
	// Mode selects execution transport: "http" (default, SQL-over-HTTP proxy)
	// or "direct" (pgx against the branch endpoint).
	Mode string `json:"mode"`
}

type describeParams struct {
	Table     string `json:"table"`
	ProjectID string `json:"project_id"`
	Branch    string `json:"branch"`
	Database  string `json:"database"`
}

type tablesParams struct {
	ProjectID string `json:"project_id"`
	Branch    string `json:"branch"`
	Database  string `json:"database"`
}

type createBranchParams struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id"`
}

type deleteBranchParams struct {
	ProjectID string `json:"project_id"`
	BranchID  string `json:"branch_id"`
}

type connectionStringParams struct {
	ProjectID string `json:"project_id"`
	Branch    string `json:"branch"`
	Database  string `json:"database"`
	Pooled    bool   `json:"pooled"`
}

// decodeParams unmarshals raw params into out. Absent params decode as the
// zero value; params that are not a JSON object are a malformed envelope.
func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Wrap(errs.MalformedEnvelope, "params do not match method signature", err)
	}
	return nil
}
