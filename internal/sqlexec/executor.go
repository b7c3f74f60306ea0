// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec executes SQL directly against a branch endpoint over a pgx
// connection pool. It backs the direct query mode: the daemon resolves the
// branch connection URI from the control plane and runs the statement itself
// instead of going through the SQL-over-HTTP proxy. Results are normalized
// into the protocol's columns/rows shape with JSON-safe values, including
// PostgreSQL-specific types like UUIDs and byte arrays.
package sqlexec

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fgp/neon/internal/dsn"
	errs "fgp/neon/internal/errors"
)

// Result represents a normalized SQL result for JSON marshaling.
type Result struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
}

// Executor runs statements on one connection pool. Pools are created per
// direct-mode request and closed when the response is written; queries may
// have side effects, so nothing is ever retried.
type Executor struct {
	pool *pgxpool.Pool
}

// New validates connURI and opens a connection pool against it.
func New(ctx context.Context, connURI string) (*Executor, error) {
	if err := dsn.Validate(connURI); err != nil {
		return nil, errs.Wrap(errs.UpstreamError, "bad connection uri from control plane", err)
	}
	pool, err := pgxpool.New(ctx, connURI)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamUnreachable, "failed to open connection pool", err)
	}
	return &Executor{pool: pool}, nil
}

// Close releases the pool.
func (e *Executor) Close() {
	e.pool.Close()
}

// Execute runs one statement and collects the full result set.
// SQL errors surface with the server's message passed through.
func (e *Executor) Execute(ctx context.Context, sql string) (Result, error) {
	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return Result{}, mapPgError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := Result{Columns: make([]string, len(fields))}
	for i, f := range fields {
		result.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, mapPgError(err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = NormalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, mapPgError(err)
	}
	result.RowsAffected = rows.CommandTag().RowsAffected()
	return result, nil
}

// mapPgError translates pgx failures onto the daemon's error taxonomy.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.New(errs.UpstreamError, pgErr.Message)
	}
	return errs.Wrap(errs.UpstreamUnreachable, "query connection failed", err)
}

// NormalizeValue converts pgx-returned values into JSON-serializable forms.
// 16-byte arrays render as canonical UUID strings, other byte slices as
// Postgres hex escape format.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		if len(val) == 16 {
			return uuidString(val)
		}
		return fmt.Sprintf("\\x%x", val)
	case [16]byte:
		return uuidString(val[:])
	default:
		return v
	}
}

// uuidString formats 16 bytes as xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func uuidString(b []byte) string {
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}
