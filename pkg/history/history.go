// Copyright 2025 The braingate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history keeps an audit log of engine invocations. The log
// records what was asked and how it went, never configuration.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is one logged invocation.
type Record struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Route     string    `json:"route"`
	Preset    string    `json:"preset"`
	Model     string    `json:"model"`
	Outcome   string    `json:"outcome"`
	Score     float64   `json:"score"`
	Duration  int64     `json:"duration_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists invocation records.
type Store struct {
	db     *sql.DB
	driver string
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS invocations (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	route TEXT NOT NULL,
	preset TEXT NOT NULL,
	model TEXT NOT NULL,
	outcome TEXT NOT NULL,
	score REAL NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

// NewStore opens (or reuses, per pool) the backing database and ensures
// the schema exists.
func NewStore(ctx context.Context, pool *DBPool, driver, dsn string) (*Store, error) {
	db, err := pool.Get(driver, dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create invocations table: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// placeholder returns the parameter marker for position n (1-based).
// Postgres uses $n; sqlite and mysql use ?.
func (s *Store) placeholder(n int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Append writes one record.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(
		`INSERT INTO invocations (id, query, route, preset, model, outcome, score, duration_ms, created_at)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3),
		s.placeholder(4), s.placeholder(5), s.placeholder(6),
		s.placeholder(7), s.placeholder(8), s.placeholder(9))

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Query, rec.Route, rec.Preset, rec.Model,
		rec.Outcome, rec.Score, rec.Duration, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append invocation record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(
		`SELECT id, query, route, preset, model, outcome, score, duration_ms, created_at
		 FROM invocations ORDER BY created_at DESC LIMIT %s`,
		s.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocation records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Route, &rec.Preset, &rec.Model,
			&rec.Outcome, &rec.Score, &rec.Duration, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invocation record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
