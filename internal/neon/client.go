// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package neon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "fgp/neon/internal/errors"
)

// HTTP implements API over the Neon control-plane REST endpoints.
// Every request carries the stored credential as a bearer token. Read-only
// listing calls are retried once on transient network failure; RunSQL never is.
type HTTP struct {
	// baseURL is the control-plane base (e.g. "https://console.neon.tech/api/v2")
	baseURL string
	// apiKey is the long-lived credential, read-only after construction
	apiKey string
	// orgID scopes project listings when set
	orgID string
	// sqlScheme is the scheme for SQL-over-HTTP endpoint calls; tests override it
	sqlScheme string
	// client is the underlying HTTP client with configured timeout
	client *http.Client
}

// Option adjusts HTTP client construction.
type Option func(*HTTP)

// WithSQLScheme overrides the scheme used for SQL endpoint requests.
// Production always uses https; tests point at a local plain-HTTP fake.
func WithSQLScheme(scheme string) Option {
	return func(h *HTTP) { h.sqlScheme = scheme }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// NewHTTP creates a Neon API client. It configures a 30-second timeout for
// all requests; upstream calls block only the issuing connection worker.
func NewHTTP(baseURL, apiKey, orgID string, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		orgID:     orgID,
		sqlScheme: "https",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// getJSON performs an authenticated GET with a single retry on transient
// network failure. Safe for listing calls only.
func (h *HTTP) getJSON(ctx context.Context, endpoint string, out any) error {
	err := h.doJSON(ctx, http.MethodGet, endpoint, nil, out)
	if err != nil && errs.Is(err, errs.UpstreamUnreachable) && ctx.Err() == nil {
		err = h.doJSON(ctx, http.MethodGet, endpoint, nil, out)
	}
	return err
}

// doJSON performs one authenticated request and decodes the JSON response.
func (h *HTTP) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return errs.Wrap(errs.UpstreamUnreachable, "control plane request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.UpstreamError, "invalid response from control plane", err)
	}
	return nil
}

// classifyStatus maps non-2xx responses onto the daemon's error taxonomy.
// The upstream error message is passed through for generic failures.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg := upstreamMessage(resp.Body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.New(errs.Unauthorized, msg)
	case http.StatusNotFound:
		return errs.New(errs.NotFound, msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
		}
		return errs.New(errs.UpstreamError, msg)
	}
}

// upstreamMessage extracts the message from a Neon error body {code, message}.
func upstreamMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil {
		return ""
	}
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(b))
}

// Ping lists a single project as a lightweight authenticated probe.
func (h *HTTP) Ping(ctx context.Context) error {
	var out struct {
		Projects []json.RawMessage `json:"projects"`
	}
	return h.doJSON(ctx, http.MethodGet, h.projectsEndpoint(1), nil, &out)
}

// projectsEndpoint builds the project listing endpoint with org scoping.
func (h *HTTP) projectsEndpoint(limit int) string {
	q := url.Values{}
	if h.orgID != "" {
		q.Set("org_id", h.orgID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if enc := q.Encode(); enc != "" {
		return "/projects?" + enc
	}
	return "/projects"
}

func (h *HTTP) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	var out struct {
		Projects []struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			RegionID  string `json:"region_id"`
			PgVersion int    `json:"pg_version"`
			CreatedAt string `json:"created_at"`
		} `json:"projects"`
	}
	if err := h.getJSON(ctx, h.projectsEndpoint(limit), &out); err != nil {
		return nil, err
	}
	projects := make([]Project, 0, len(out.Projects))
	for _, p := range out.Projects {
		projects = append(projects, Project{
			ID:        p.ID,
			Name:      p.Name,
			RegionID:  p.RegionID,
			PgVersion: p.PgVersion,
			CreatedAt: p.CreatedAt,
		})
	}
	return projects, nil
}

func (h *HTTP) GetProject(ctx context.Context, projectID string) (Project, error) {
	var out struct {
		Project struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			RegionID  string `json:"region_id"`
			PgVersion int    `json:"pg_version"`
			CreatedAt string `json:"created_at"`
		} `json:"project"`
	}
	if err := h.getJSON(ctx, "/projects/"+url.PathEscape(projectID), &out); err != nil {
		return Project{}, err
	}
	return Project{
		ID:        out.Project.ID,
		Name:      out.Project.Name,
		RegionID:  out.Project.RegionID,
		PgVersion: out.Project.PgVersion,
		CreatedAt: out.Project.CreatedAt,
	}, nil
}

func (h *HTTP) ListBranches(ctx context.Context, projectID string) ([]Branch, error) {
	var out struct {
		Branches []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Primary      bool   `json:"primary"`
			Default      bool   `json:"default"`
			CurrentState string `json:"current_state"`
			ParentID     string `json:"parent_id"`
			CreatedAt    string `json:"created_at"`
		} `json:"branches"`
	}
	if err := h.getJSON(ctx, "/projects/"+url.PathEscape(projectID)+"/branches", &out); err != nil {
		return nil, err
	}
	branches := make([]Branch, 0, len(out.Branches))
	for _, b := range out.Branches {
		branches = append(branches, Branch{
			ID: b.ID,
			// Newer API versions report "default" instead of "primary".
			Primary:   b.Primary || b.Default,
			Name:      b.Name,
			State:     b.CurrentState,
			ParentID:  b.ParentID,
			CreatedAt: b.CreatedAt,
		})
	}
	return branches, nil
}

func (h *HTTP) ListDatabases(ctx context.Context, projectID, branchID string) ([]Database, error) {
	var out struct {
		Databases []Database `json:"databases"`
	}
	endpoint := "/projects/" + url.PathEscape(projectID) + "/branches/" + url.PathEscape(branchID) + "/databases"
	if err := h.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Databases, nil
}

func (h *HTTP) ListEndpoints(ctx context.Context, projectID string) ([]Endpoint, error) {
	var out struct {
		Endpoints []Endpoint `json:"endpoints"`
	}
	if err := h.getJSON(ctx, "/projects/"+url.PathEscape(projectID)+"/endpoints", &out); err != nil {
		return nil, err
	}
	return out.Endpoints, nil
}

func (h *HTTP) CreateBranch(ctx context.Context, projectID, name, parentID string) (Branch, error) {
	type branchSpec struct {
		Name     string `json:"name,omitempty"`
		ParentID string `json:"parent_id,omitempty"`
	}
	body := struct {
		Branch branchSpec `json:"branch"`
	}{Branch: branchSpec{Name: name, ParentID: parentID}}

	var out struct {
		Branch struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Primary      bool   `json:"primary"`
			CurrentState string `json:"current_state"`
			ParentID     string `json:"parent_id"`
			CreatedAt    string `json:"created_at"`
		} `json:"branch"`
	}
	endpoint := "/projects/" + url.PathEscape(projectID) + "/branches"
	if err := h.doJSON(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return Branch{}, err
	}
	return Branch{
		ID:        out.Branch.ID,
		Name:      out.Branch.Name,
		Primary:   out.Branch.Primary,
		State:     out.Branch.CurrentState,
		ParentID:  out.Branch.ParentID,
		CreatedAt: out.Branch.CreatedAt,
	}, nil
}

func (h *HTTP) DeleteBranch(ctx context.Context, projectID, branchID string) error {
	endpoint := "/projects/" + url.PathEscape(projectID) + "/branches/" + url.PathEscape(branchID)
	return h.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (h *HTTP) ConnectionURI(ctx context.Context, projectID, branchID, database string, pooled bool) (string, error) {
	q := url.Values{}
	if branchID != "" {
		q.Set("branch_id", branchID)
	}
	if database != "" {
		q.Set("database_name", database)
	}
	if pooled {
		q.Set("pooled", "true")
	}
	endpoint := "/projects/" + url.PathEscape(projectID) + "/connection_uri"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := h.getJSON(ctx, endpoint, &out); err != nil {
		return "", err
	}
	if out.URI == "" {
		return "", errs.New(errs.UpstreamError, "control plane returned empty connection uri")
	}
	return out.URI, nil
}

func (h *HTTP) GetUser(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := h.getJSON(ctx, "/users/me", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RunSQL executes sql via the branch endpoint's SQL-over-HTTP interface
// (POST https://{host}/sql). Errors from statement execution are passed
// through with the upstream message; the call is never retried.
func (h *HTTP) RunSQL(ctx context.Context, host, database, sql string) (QueryResult, error) {
	body, err := json.Marshal(struct {
		Query  string `json:"query"`
		Params []any  `json:"params"`
	}{Query: sql, Params: []any{}})
	if err != nil {
		return QueryResult{}, err
	}

	sqlURL := fmt.Sprintf("%s://%s/sql", h.sqlScheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sqlURL, bytes.NewReader(body))
	if err != nil {
		return QueryResult{}, err
	}
	connStr := fmt.Sprintf("postgres://neondb_owner:%s@%s/%s", h.apiKey, host, database)
	req.Header.Set("Neon-Connection-String", connStr)
	req.Header.Set("Neon-Array-Mode", "true")
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return QueryResult{}, errs.Wrap(errs.UpstreamUnreachable, "sql endpoint request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return QueryResult{}, err
	}

	var raw struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
		Rows []json.RawMessage `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return QueryResult{}, errs.Wrap(errs.UpstreamError, "invalid sql response", err)
	}

	result := QueryResult{
		Columns: make([]string, 0, len(raw.Fields)),
		Rows:    make([][]any, 0, len(raw.Rows)),
	}
	for _, f := range raw.Fields {
		result.Columns = append(result.Columns, f.Name)
	}
	for _, r := range raw.Rows {
		row, err := decodeRow(r, result.Columns)
		if err != nil {
			return QueryResult{}, errs.Wrap(errs.UpstreamError, "invalid sql row", err)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// decodeRow accepts both array-mode rows and object rows keyed by column name;
// the endpoint honors Neon-Array-Mode but older proxies ignore it.
func decodeRow(raw json.RawMessage, columns []string) ([]any, error) {
	var arr []any
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = obj[c]
	}
	return row, nil
}
