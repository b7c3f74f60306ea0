// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package service implements the daemon's capability table: it maps each
// exposed method onto control-plane calls and normalizes results into the
// shapes the protocol promises. The service is a stateless translator; the
// only state it touches is the long-lived credential (read-only) and the
// shared health snapshot.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fgp/neon/internal/config"
	"fgp/neon/internal/dsn"
	errs "fgp/neon/internal/errors"
	"fgp/neon/internal/health"
	"fgp/neon/internal/neon"
	"fgp/neon/internal/sqlexec"
)

// queryExecutor abstracts the direct execution path for tests.
type queryExecutor interface {
	Execute(ctx context.Context, sql string) (sqlexec.Result, error)
	Close()
}

// Service dispatches daemon methods to the upstream gateway.
type Service struct {
	api     neon.API
	cfg     config.NeonConfig
	hasCred bool
	health  *health.State
	version string
	onStop  func()

	// newExecutor opens the direct-mode executor; tests replace it.
	newExecutor func(ctx context.Context, connURI string) (queryExecutor, error)
}

// New creates the service. hasCred reflects whether a credential was resolved
// at startup; when false every upstream-dependent method fails fast with
// missing_credential while health keeps working.
func New(api neon.API, cfg config.NeonConfig, hasCred bool, state *health.State, version string) *Service {
	return &Service{
		api:     api,
		cfg:     cfg,
		hasCred: hasCred,
		health:  state,
		version: version,
		newExecutor: func(ctx context.Context, connURI string) (queryExecutor, error) {
			return sqlexec.New(ctx, connURI)
		},
	}
}

// Name returns the service name used in daemon identification.
func (s *Service) Name() string { return "neon" }

// SetStopFunc registers the callback invoked by the stop method.
func (s *Service) SetStopFunc(fn func()) { s.onStop = fn }

// Dispatch routes one decoded request to its handler. Unknown methods yield
// an unknown_method error; the caller translates errors onto the wire.
func (s *Service) Dispatch(ctx context.Context, method string, params []byte) (any, error) {
	switch canonical(method) {
	case "health":
		return s.healthInfo(), nil
	case "methods":
		return map[string]any{"methods": methodList()}, nil
	case "stop":
		return s.stop(), nil
	case "neon.projects":
		return s.listProjects(ctx, params)
	case "neon.project":
		return s.getProject(ctx, params)
	case "neon.branches":
		return s.listBranches(ctx, params)
	case "neon.databases":
		return s.listDatabases(ctx, params)
	case "neon.query":
		return s.runQuery(ctx, params)
	case "neon.describe":
		return s.describeTable(ctx, params)
	case "neon.tables":
		return s.listTables(ctx, params)
	case "neon.user":
		return s.getUser(ctx)
	case "neon.create_branch":
		return s.createBranch(ctx, params)
	case "neon.delete_branch":
		return s.deleteBranch(ctx, params)
	case "neon.connection_string":
		return s.connectionString(ctx, params)
	default:
		return nil, errs.New(errs.UnknownMethod, method)
	}
}

// canonical maps short method aliases onto their namespaced form, so both
// "projects" and "neon.projects" reach the same handler.
func canonical(method string) string {
	switch method {
	case "health", "methods", "stop":
		return method
	}
	if strings.Contains(method, ".") {
		// Legacy aliases from earlier daemon revisions.
		switch method {
		case "neon.sql":
			return "neon.query"
		case "neon.schema":
			return "neon.describe"
		}
		return method
	}
	return canonical("neon." + method)
}

// requireCred guards upstream-dependent handlers.
func (s *Service) requireCred() error {
	if !s.hasCred {
		return errs.New(errs.MissingCredential, "no Neon API key configured")
	}
	return nil
}

// healthInfo reads the cached health snapshot; it never probes upstream.
func (s *Service) healthInfo() map[string]any {
	snap := s.health.Snapshot()
	status := "degraded"
	if snap.UpstreamReachable {
		status = "healthy"
	}
	out := map[string]any{
		"status":             status,
		"upstream_reachable": snap.UpstreamReachable,
		"started_at":         snap.StartedAt.UTC().Format(time.RFC3339),
		"uptime_seconds":     int64(snap.Uptime(time.Now()).Seconds()),
		"version":            s.version,
	}
	if !snap.LastCheck.IsZero() {
		out["last_check"] = snap.LastCheck.UTC().Format(time.RFC3339)
	}
	return out
}

// stop schedules daemon shutdown shortly after the response is written.
func (s *Service) stop() map[string]any {
	if s.onStop != nil {
		time.AfterFunc(100*time.Millisecond, s.onStop)
	}
	return map[string]any{"stopping": true}
}

func (s *Service) listProjects(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p struct {
		Limit int `json:"limit"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	projects, err := s.api.ListProjects(ctx, p.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"projects": projects, "count": len(projects)}, nil
}

func (s *Service) getProject(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p projectParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		return nil, errs.New(errs.MissingParameter, "project_id")
	}
	project, err := s.api.GetProject(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"project": project}, nil
}

func (s *Service) listBranches(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p branchesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		return nil, errs.New(errs.MissingParameter, "project_id")
	}
	branches, err := s.api.ListBranches(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"branches": branches, "count": len(branches)}, nil
}

func (s *Service) listDatabases(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p databasesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		return nil, errs.New(errs.MissingParameter, "project_id")
	}
	branch, err := s.resolveBranch(ctx, p.ProjectID, p.Branch)
	if err != nil {
		return nil, err
	}
	databases, err := s.api.ListDatabases(ctx, p.ProjectID, branch.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"databases": databases, "count": len(databases)}, nil
}

func (s *Service) runQuery(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p queryParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.SQL == "" {
		return nil, errs.New(errs.MissingParameter, "sql")
	}
	projectID, err := s.resolveProject(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}
	branch, err := s.resolveBranch(ctx, projectID, p.Branch)
	if err != nil {
		return nil, err
	}
	database := p.Database
	if database == "" {
		database = s.cfg.Database
	}

	// Queries may have side effects: never retried, and not cancelled when
	// the client goes away mid-flight.
	execCtx := context.WithoutCancel(ctx)

	if p.Mode == "direct" {
		return s.runDirect(execCtx, projectID, branch.ID, database, p.SQL)
	}

	host, err := s.endpointHost(ctx, projectID, branch.ID)
	if err != nil {
		return nil, err
	}
	result, err := s.api.RunSQL(execCtx, host, database, p.SQL)
	if err != nil {
		return nil, err
	}
	return map[string]any{"columns": result.Columns, "rows": result.Rows}, nil
}

// runDirect resolves the branch connection URI and executes over pgx.
func (s *Service) runDirect(ctx context.Context, projectID, branchID, database, sql string) (any, error) {
	uri, err := s.api.ConnectionURI(ctx, projectID, branchID, database, false)
	if err != nil {
		return nil, err
	}
	exec, err := s.newExecutor(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer exec.Close()

	result, err := exec.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"columns": result.Columns, "rows": result.Rows}
	if result.RowsAffected > 0 {
		out["rows_affected"] = result.RowsAffected
	}
	return out, nil
}

func (s *Service) describeTable(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p describeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Table == "" {
		return nil, errs.New(errs.MissingParameter, "table")
	}

	schema, table := splitTable(p.Table)
	sql := fmt.Sprintf(
		"SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = '%s'",
		escapeLiteral(table),
	)
	if schema != "" {
		sql += fmt.Sprintf(" AND table_schema = '%s'", escapeLiteral(schema))
	}
	sql += " ORDER BY ordinal_position"

	result, err := s.runCatalogQuery(ctx, p.ProjectID, p.Branch, p.Database, sql)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, errs.New(errs.NotFound, p.Table)
	}

	columns := make([]neon.ColumnInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 3 {
			return nil, errs.New(errs.UpstreamError, "unexpected catalog row shape")
		}
		columns = append(columns, neon.ColumnInfo{
			Name:     fmt.Sprint(row[0]),
			Type:     fmt.Sprint(row[1]),
			Nullable: strings.EqualFold(fmt.Sprint(row[2]), "YES"),
		})
	}
	return map[string]any{"columns": columns}, nil
}

func (s *Service) listTables(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p tablesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	sql := "SELECT schemaname, tablename FROM pg_catalog.pg_tables " +
		"WHERE schemaname NOT IN ('pg_catalog', 'information_schema') " +
		"ORDER BY schemaname, tablename"
	result, err := s.runCatalogQuery(ctx, p.ProjectID, p.Branch, p.Database, sql)
	if err != nil {
		return nil, err
	}
	tables := make([]neon.TableInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 2 {
			return nil, errs.New(errs.UpstreamError, "unexpected catalog row shape")
		}
		tables = append(tables, neon.TableInfo{
			Schema: fmt.Sprint(row[0]),
			Name:   fmt.Sprint(row[1]),
		})
	}
	return map[string]any{"tables": tables, "count": len(tables)}, nil
}

// runCatalogQuery resolves project/branch defaults and executes a read-only
// catalog statement on the branch endpoint.
func (s *Service) runCatalogQuery(ctx context.Context, projectID, branchName, database, sql string) (neon.QueryResult, error) {
	resolved, err := s.resolveProject(ctx, projectID)
	if err != nil {
		return neon.QueryResult{}, err
	}
	branch, err := s.resolveBranch(ctx, resolved, branchName)
	if err != nil {
		return neon.QueryResult{}, err
	}
	if database == "" {
		database = s.cfg.Database
	}
	host, err := s.endpointHost(ctx, resolved, branch.ID)
	if err != nil {
		return neon.QueryResult{}, err
	}
	return s.api.RunSQL(ctx, host, database, sql)
}

func (s *Service) getUser(ctx context.Context) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	user, err := s.api.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) createBranch(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p createBranchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		return nil, errs.New(errs.MissingParameter, "project_id")
	}
	branch, err := s.api.CreateBranch(ctx, p.ProjectID, p.Name, p.ParentID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"branch": branch}, nil
}

func (s *Service) deleteBranch(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p deleteBranchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		return nil, errs.New(errs.MissingParameter, "project_id")
	}
	if p.BranchID == "" {
		return nil, errs.New(errs.MissingParameter, "branch_id")
	}
	if err := s.api.DeleteBranch(ctx, p.ProjectID, p.BranchID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}

func (s *Service) connectionString(ctx context.Context, params []byte) (any, error) {
	if err := s.requireCred(); err != nil {
		return nil, err
	}
	var p connectionStringParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProjectID == "" {
		return nil, errs.New(errs.MissingParameter, "project_id")
	}
	branchID := ""
	if p.Branch != "" {
		branch, err := s.resolveBranch(ctx, p.ProjectID, p.Branch)
		if err != nil {
			return nil, err
		}
		branchID = branch.ID
	}
	database := p.Database
	if database == "" {
		database = s.cfg.Database
	}
	uri, err := s.api.ConnectionURI(ctx, p.ProjectID, branchID, database, p.Pooled)
	if err != nil {
		return nil, err
	}
	info, err := dsn.Parse(uri)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamError, "bad connection uri from control plane", err)
	}
	return map[string]any{
		"uri":      dsn.Normalize(info),
		"redacted": dsn.Redact(info),
	}, nil
}

// resolveProject fills in an omitted project_id: configured default first,
// then the account's single project when exactly one exists.
func (s *Service) resolveProject(ctx context.Context, projectID string) (string, error) {
	if projectID != "" {
		return projectID, nil
	}
	if s.cfg.DefaultProject != "" {
		return s.cfg.DefaultProject, nil
	}
	projects, err := s.api.ListProjects(ctx, 2)
	if err != nil {
		return "", err
	}
	if len(projects) == 1 {
		return projects[0].ID, nil
	}
	return "", errs.New(errs.MissingParameter, "project_id")
}

// resolveBranch maps a branch name or id onto a concrete branch, defaulting
// to the project's primary branch when omitted.
func (s *Service) resolveBranch(ctx context.Context, projectID, branch string) (neon.Branch, error) {
	branches, err := s.api.ListBranches(ctx, projectID)
	if err != nil {
		return neon.Branch{}, err
	}
	if branch == "" {
		for _, b := range branches {
			if b.Primary {
				return b, nil
			}
		}
		if len(branches) > 0 {
			return branches[0], nil
		}
		return neon.Branch{}, errs.New(errs.NotFound, "project has no branches")
	}
	for _, b := range branches {
		if b.ID == branch || b.Name == branch {
			return b, nil
		}
	}
	return neon.Branch{}, errs.New(errs.NotFound, branch)
}

// endpointHost finds the compute endpoint serving a branch.
func (s *Service) endpointHost(ctx context.Context, projectID, branchID string) (string, error) {
	endpoints, err := s.api.ListEndpoints(ctx, projectID)
	if err != nil {
		return "", err
	}
	for _, e := range endpoints {
		if e.BranchID == branchID {
			return e.Host, nil
		}
	}
	return "", errs.New(errs.NotFound, "no endpoint for branch "+branchID)
}

// splitTable separates an optionally schema-qualified table name.
func splitTable(table string) (schema, name string) {
	if i := strings.IndexByte(table, '.'); i >= 0 {
		return table[:i], table[i+1:]
	}
	return "", table
}

// escapeLiteral doubles single quotes for embedding in a SQL literal.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
