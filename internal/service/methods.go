// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package service

// ParamInfo describes one parameter of an exposed method.
type ParamInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// MethodInfo describes one exposed method for the `methods` capability.
type MethodInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamInfo `json:"params"`
}

// methodList is the machine-readable capability table returned by `methods`.
func methodList() []MethodInfo {
	return []MethodInfo{
		{
			Name:        "health",
			Description: "Daemon readiness and cached upstream reachability",
			Params:      []ParamInfo{},
		},
		{
			Name:        "methods",
			Description: "List exposed methods",
			Params:      []ParamInfo{},
		},
		{
			Name:        "stop",
			Description: "Gracefully stop the daemon",
			Params:      []ParamInfo{},
		},
		{
			Name:        "neon.projects",
			Description: "List Neon projects",
			Params: []ParamInfo{
				{Name: "limit", Type: "integer"},
			},
		},
		{
			Name:        "neon.project",
			Description: "Get a specific project",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string", Required: true},
			},
		},
		{
			Name:        "neon.branches",
			Description: "List branches for a project",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string", Required: true},
			},
		},
		{
			Name:        "neon.databases",
			Description: "List databases for a branch",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string", Required: true},
				{Name: "branch", Type: "string"},
			},
		},
		{
			Name:        "neon.query",
			Description: "Run SQL against a branch",
			Params: []ParamInfo{
				{Name: "sql", Type: "string", Required: true},
				{Name: "project_id", Type: "string"},
				{Name: "branch", Type: "string"},
				{Name: "database", Type: "string"},
				{Name: "mode", Type: "string"},
			},
		},
		{
			Name:        "neon.describe",
			Description: "Get table schema",
			Params: []ParamInfo{
				{Name: "table", Type: "string", Required: true},
				{Name: "project_id", Type: "string"},
				{Name: "branch", Type: "string"},
				{Name: "database", Type: "string"},
			},
		},
		{
			Name:        "neon.tables",
			Description: "List tables in a database",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string"},
				{Name: "branch", Type: "string"},
				{Name: "database", Type: "string"},
			},
		},
		{
			Name:        "neon.user",
			Description: "Get current account info",
			Params:      []ParamInfo{},
		},
		{
			Name:        "neon.create_branch",
			Description: "Create a new branch",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string", Required: true},
				{Name: "name", Type: "string"},
				{Name: "parent_id", Type: "string"},
			},
		},
		{
			Name:        "neon.delete_branch",
			Description: "Delete a branch",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string", Required: true},
				{Name: "branch_id", Type: "string", Required: true},
			},
		},
		{
			Name:        "neon.connection_string",
			Description: "Get connection string for a branch",
			Params: []ParamInfo{
				{Name: "project_id", Type: "string", Required: true},
				{Name: "branch", Type: "string"},
				{Name: "database", Type: "string"},
				{Name: "pooled", Type: "boolean"},
			},
		},
	}
}
