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

// Package aggregator merges tools from heterogeneous sources into a single
// ordered catalog.
//
// Sources register in discovery order and the catalog preserves it: tools
// appear in source-registration order, and in insertion order within a
// source. Name collisions resolve first-registered-wins with a warning.
// A failing source never aborts aggregation; its failure is recorded and
// the catalog simply lacks its tools.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/minionhq/braingate/pkg/observability"
	"github.com/minionhq/braingate/pkg/tool"
)

// SourceError records the failure of a single source. Source failures are
// contained: the aggregator stays usable with a degraded catalog.
type SourceError struct {
	Source string
	Kind   tool.Kind
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("tool source %q (%s) failed: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

type entry struct {
	tool   tool.Tool
	source string
	kind   tool.Kind
}

// ToolStatus describes one catalog entry for status listings.
type ToolStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Kind        string `json:"kind"`
}

// Aggregator is the merged tool catalog. Reads are safe for concurrent use.
type Aggregator struct {
	mu       sync.RWMutex
	entries  []entry
	index    map[string]int
	sources  []tool.Source
	failures []*SourceError
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{
		index: make(map[string]int),
	}
}

// Register connects a source and merges its tools into the catalog.
// On failure the source is recorded and the returned *SourceError is
// informational; the aggregator remains usable.
func (a *Aggregator) Register(ctx context.Context, src tool.Source) *SourceError {
	tools, err := src.Connect(ctx)
	if err != nil {
		srcErr := &SourceError{Source: src.Name(), Kind: src.Kind(), Err: err}
		slog.Warn("Tool source failed, continuing without it",
			"source", src.Name(), "kind", string(src.Kind()), "error", err)
		if m := observability.GetGlobalMetrics(); m != nil {
			m.RecordSourceFailure(ctx, src.Name())
		}

		a.mu.Lock()
		a.failures = append(a.failures, srcErr)
		a.mu.Unlock()
		return srcErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.sources = append(a.sources, src)
	for _, t := range tools {
		name := t.Name()
		if prev, exists := a.index[name]; exists {
			slog.Warn("Duplicate tool name, keeping first registration",
				"tool", name,
				"kept_source", a.entries[prev].source,
				"dropped_source", src.Name())
			continue
		}
		a.index[name] = len(a.entries)
		a.entries = append(a.entries, entry{tool: t, source: src.Name(), kind: src.Kind()})
	}

	slog.Info("Registered tool source",
		"source", src.Name(), "kind", string(src.Kind()), "tools", len(tools))
	return nil
}

// Tools returns the catalog in registration order.
func (a *Aggregator) Tools() []tool.Tool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	tools := make([]tool.Tool, 0, len(a.entries))
	for _, e := range a.entries {
		tools = append(tools, e.tool)
	}
	return tools
}

// Definitions returns the engine-facing view of the catalog.
func (a *Aggregator) Definitions() []tool.Definition {
	return tool.Definitions(a.Tools())
}

// Lookup returns the tool registered under name.
func (a *Aggregator) Lookup(name string) (tool.Tool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.entries[i].tool, true
}

// Status returns catalog entries for status listings.
func (a *Aggregator) Status() []ToolStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	statuses := make([]ToolStatus, 0, len(a.entries))
	for _, e := range a.entries {
		statuses = append(statuses, ToolStatus{
			Name:        e.tool.Name(),
			Description: e.tool.Description(),
			Source:      e.source,
			Kind:        string(e.kind),
		})
	}
	return statuses
}

// Failures returns the source failures recorded during registration.
func (a *Aggregator) Failures() []*SourceError {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*SourceError, len(a.failures))
	copy(out, a.failures)
	return out
}

// Len returns the number of catalog entries.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Shutdown closes every registered source. A failing close does not stop
// teardown of the remaining sources; all errors are collected.
func (a *Aggregator) Shutdown() error {
	a.mu.Lock()
	sources := a.sources
	a.sources = nil
	a.entries = nil
	a.index = make(map[string]int)
	a.mu.Unlock()

	var errs []error
	for _, src := range sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close source %q: %w", src.Name(), err))
		}
	}
	return errors.Join(errs...)
}
