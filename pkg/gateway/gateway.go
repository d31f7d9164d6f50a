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

// Package gateway ties the resolver, the tool catalog and the dispatcher
// into one submit path: raw request in, engine observation out.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/minionhq/braingate/pkg/aggregator"
	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/dispatch"
	"github.com/minionhq/braingate/pkg/engine"
	"github.com/minionhq/braingate/pkg/history"
	"github.com/minionhq/braingate/pkg/observability"
	"github.com/minionhq/braingate/pkg/tool"
)

// Request carries the raw submit inputs.
type Request struct {
	Query     string         `json:"query"`
	Route     string         `json:"route"`
	QueryType string         `json:"query_type,omitempty"`
	Check     bool           `json:"check"`
	UseTools  bool           `json:"use_tools"`
	Preset    string         `json:"preset,omitempty"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// Response is the outcome of one handled request.
type Response struct {
	ID          string  `json:"id"`
	Observation string  `json:"observation"`
	Score       float64 `json:"score"`
	Route       *string `json:"route"`
	Model       string  `json:"model"`
	DurationMs  int64   `json:"duration_ms"`
	Extra       []any   `json:"extra,omitempty"`
}

// Gateway handles submit requests end to end.
type Gateway struct {
	resolver   *config.Resolver
	dispatcher *dispatch.Dispatcher
	tools      *aggregator.Lazy
	store      *history.Store
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithResolver replaces the environment-sourced configuration resolver.
func WithResolver(r *config.Resolver) Option {
	return func(g *Gateway) { g.resolver = r }
}

// WithDispatcher replaces the default engine-backed dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(g *Gateway) { g.dispatcher = d }
}

// WithTools replaces the environment-built tool catalog.
func WithTools(lazy *aggregator.Lazy) Option {
	return func(g *Gateway) { g.tools = lazy }
}

// WithHistory enables the invocation audit log.
func WithHistory(store *history.Store) Option {
	return func(g *Gateway) { g.store = store }
}

// New creates a gateway with presets loaded from the environment.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		resolver:   config.NewResolver(),
		dispatcher: dispatch.New(),
		tools:      aggregator.NewLazy(aggregator.BuildFromEnv),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle processes one submit request: resolve configuration, fetch the
// tool catalog if requested, build the payload, and issue exactly one
// engine invocation. Configuration and validation errors abort before
// any engine work.
func (g *Gateway) Handle(ctx context.Context, req *Request) (*Response, error) {
	id := uuid.NewString()
	start := time.Now()

	cfg, err := g.resolver.Resolve(req.Preset, req.Overrides)
	if err != nil {
		g.recordMetrics(ctx, req.Route, start, err)
		return nil, err
	}

	var tools []tool.Definition
	if req.UseTools {
		tools = g.tools.Get(ctx).Definitions()
	}

	payload, err := dispatch.BuildPayload(req.Query, req.Route, req.Check, req.QueryType, tools)
	if err != nil {
		g.recordMetrics(ctx, req.Route, start, err)
		return nil, err
	}

	slog.Info("Dispatching query",
		"id", id,
		"route", req.Route,
		"preset", req.Preset,
		"model", cfg.Model,
		"tools", len(tools))

	engineStart := time.Now()
	result, err := g.dispatcher.Invoke(ctx, payload, cfg)
	duration := time.Since(start)
	g.recordEngineCall(ctx, cfg.Model, time.Since(engineStart), result, err)
	g.recordMetrics(ctx, req.Route, start, err)
	g.recordHistory(ctx, id, req, cfg, result, duration, err)
	if err != nil {
		return nil, err
	}

	return &Response{
		ID:          id,
		Observation: result.Observation,
		Score:       result.Score,
		Route:       payload.Route,
		Model:       cfg.Model,
		DurationMs:  duration.Milliseconds(),
		Extra:       result.Extra,
	}, nil
}

// Tools returns the current catalog status listing.
func (g *Gateway) Tools(ctx context.Context) []aggregator.ToolStatus {
	return g.tools.Get(ctx).Status()
}

// Shutdown tears down the tool catalog if it was ever built. A catalog
// that was never constructed stays that way; teardown must not trigger
// source discovery.
func (g *Gateway) Shutdown(ctx context.Context) error {
	agg := g.tools.GetIfBuilt()
	if agg == nil {
		return nil
	}
	return agg.Shutdown()
}

func (g *Gateway) recordMetrics(ctx context.Context, route string, start time.Time, err error) {
	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordRequest(ctx, routeOrAuto(route), time.Since(start), err)
	}
}

func (g *Gateway) recordEngineCall(ctx context.Context, model string, duration time.Duration, result *engine.StepResult, err error) {
	m := observability.GetGlobalMetrics()
	if m == nil {
		return
	}
	inputTokens, outputTokens := usageTokens(result)
	m.RecordEngineCall(ctx, model, duration, inputTokens, outputTokens, err)
}

// usageTokens pulls token accounting out of the opaque trailing fields,
// when the engine reported any.
func usageTokens(result *engine.StepResult) (inputTokens, outputTokens int) {
	if result == nil {
		return 0, 0
	}
	for _, extra := range result.Extra {
		if usage, ok := extra.(engine.Usage); ok {
			return usage.PromptTokens, usage.CompletionTokens
		}
	}
	return 0, 0
}

func (g *Gateway) recordHistory(ctx context.Context, id string, req *Request, cfg *config.EffectiveConfig, result *engine.StepResult, duration time.Duration, err error) {
	if g.store == nil {
		return
	}

	rec := &history.Record{
		ID:       id,
		Query:    req.Query,
		Route:    routeOrAuto(req.Route),
		Preset:   req.Preset,
		Model:    cfg.Model,
		Outcome:  "ok",
		Duration: duration.Milliseconds(),
	}
	if err != nil {
		rec.Outcome = "error"
	} else if result != nil {
		rec.Score = result.Score
	}

	if appendErr := g.store.Append(ctx, rec); appendErr != nil {
		slog.Warn("Failed to append history record", "id", id, "error", appendErr)
	}
}

func routeOrAuto(route string) string {
	if route == "" {
		return "auto"
	}
	return route
}
