// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package neon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "fgp/neon/internal/errors"
)

func TestListProjectsPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "org-1", r.URL.Query().Get("org_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"projects":[
			{"id":"p1","name":"alpha","region_id":"aws-us-east-2"},
			{"id":"p2","name":"beta","region_id":"aws-eu-central-1"},
			{"id":"p3","name":"gamma","region_id":"aws-us-west-2"}
		]}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, "test-key", "org-1")
	projects, err := h.ListProjects(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, []string{"p1", "p2", "p3"}, []string{projects[0].ID, projects[1].ID, projects[2].ID})
	assert.Equal(t, "alpha", projects[0].Name)
}

func TestUnauthorizedNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"","message":"authorization failed"}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, "bad-key", "")
	_, err := h.ListProjects(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Unauthorized), "got %v", err)
}

func TestNotFoundNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"","message":"project not found"}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, "key", "")
	_, err := h.GetProject(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.NotFound), "got %v", err)
}

func TestNetworkFailureNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	h := NewHTTP(srv.URL, "key", "")
	_, err := h.ListBranches(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.UpstreamUnreachable), "got %v", err)
}

func TestListingRetriesOnceOnTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Kill the connection without a response.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"branches":[{"id":"br-1","name":"main","default":true,"current_state":"ready"}]}`))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, "key", "")
	branches, err := h.ListBranches(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.True(t, branches[0].Primary)
	assert.Equal(t, "ready", branches[0].State)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunSQLArrayMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sql", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Neon-Connection-String"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fields":[{"name":"id"},{"name":"email"}],"rows":[[1,"a@x.io"],[2,"b@x.io"]]}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	h := NewHTTP("https://unused.example", "key", "", WithSQLScheme("http"))
	res, err := h.RunSQL(context.Background(), host, "neondb", "select id, email from users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "a@x.io", res.Rows[0][1])
}

func TestRunSQLObjectRowsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fields":[{"name":"n"},{"name":"s"}],"rows":[{"s":"x","n":7}]}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	h := NewHTTP("https://unused.example", "key", "", WithSQLScheme("http"))
	res, err := h.RunSQL(context.Background(), host, "neondb", "select n, s from t")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, float64(7), res.Rows[0][0])
	assert.Equal(t, "x", res.Rows[0][1])
}

func TestRunSQLErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"relation \"nope\" does not exist"}`))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	h := NewHTTP("https://unused.example", "key", "", WithSQLScheme("http"))
	_, err := h.RunSQL(context.Background(), host, "neondb", "select * from nope")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.UpstreamError))
	assert.Equal(t, `relation "nope" does not exist`, errs.Wire(err))
}
