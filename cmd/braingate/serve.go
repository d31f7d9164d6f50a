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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/minionhq/braingate/pkg/gateway"
	"github.com/minionhq/braingate/pkg/history"
	"github.com/minionhq/braingate/pkg/observability"
	"github.com/minionhq/braingate/pkg/server"
)

// ServeCmd starts the gateway HTTP server.
type ServeCmd struct {
	Port int `help:"Port to listen on." default:"8080"`

	History   string `help:"Invocation history backend: sqlite, postgres, mysql (default: disabled)." placeholder:"BACKEND"`
	HistoryDB string `name:"history-db" help:"History database path/DSN (default: .braingate/history.db for sqlite)." placeholder:"PATH"`

	Metrics bool `help:"Enable prometheus metrics at /metrics." default:"true" negatable:""`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	metrics, err := observability.InitMetrics(c.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	observability.SetGlobalMetrics(metrics)

	var opts []gateway.Option

	pool := history.NewDBPool()
	defer pool.Close()

	if c.History != "" {
		store, err := c.openHistory(ctx, pool)
		if err != nil {
			return err
		}
		opts = append(opts, gateway.WithHistory(store))
		slog.Info("Invocation history enabled", "backend", c.History)
	}

	gw := gateway.New(opts...)
	defer func() {
		if err := gw.Shutdown(context.Background()); err != nil {
			slog.Warn("Tool catalog shutdown reported errors", "error", err)
		}
	}()

	srv := server.New(server.Config{Address: fmt.Sprintf(":%d", c.Port)}, gw)

	fmt.Printf("braingate ready on :%d\n", c.Port)
	fmt.Printf("   Query:   POST http://localhost:%d/v1/query\n", c.Port)
	fmt.Printf("   Tools:   GET  http://localhost:%d/v1/tools\n", c.Port)
	fmt.Printf("   Health:  GET  http://localhost:%d/health\n", c.Port)
	if c.Metrics {
		fmt.Printf("   Metrics: GET  http://localhost:%d/metrics\n", c.Port)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

func (c *ServeCmd) openHistory(ctx context.Context, pool *history.DBPool) (*history.Store, error) {
	dsn := c.HistoryDB
	if dsn == "" {
		if c.History != history.DriverSQLite {
			return nil, fmt.Errorf("--history-db is required for %s", c.History)
		}
		if err := os.MkdirAll(".braingate", 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		dsn = ".braingate/history.db"
	}

	store, err := history.NewStore(ctx, pool, c.History, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return store, nil
}
