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

package aggregator

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/minionhq/braingate/pkg/tool/localtool"
	"github.com/minionhq/braingate/pkg/tool/stdiotool"
	"github.com/minionhq/braingate/pkg/tool/streamtool"
)

// Environment keys for source discovery.
const (
	EnvStreamURL    = "MCP_SSE_URL"
	EnvStdioCommand = "MCP_STDIO_COMMAND"
	EnvWorkspace    = "BRAINGATE_WORKSPACE"
	EnvFinalAnswer  = "BRAINGATE_FINAL_ANSWER"
)

// BuildFunc populates a fresh aggregator with sources.
type BuildFunc func(ctx context.Context, agg *Aggregator)

// Lazy guards a single aggregator instance behind once-only construction.
// Concurrent callers of Get share the same instance; the build function
// runs exactly once.
type Lazy struct {
	once  sync.Once
	built atomic.Bool
	agg   *Aggregator
	build BuildFunc
}

// NewLazy creates a lazy aggregator holder.
func NewLazy(build BuildFunc) *Lazy {
	return &Lazy{build: build}
}

// Get returns the shared aggregator, constructing it on first use.
func (l *Lazy) Get(ctx context.Context) *Aggregator {
	l.once.Do(func() {
		l.agg = New()
		if l.build != nil {
			l.build(ctx, l.agg)
		}
		l.built.Store(true)
	})
	return l.agg
}

// GetIfBuilt returns the aggregator only if a prior Get constructed it.
// Teardown paths use this to avoid discovering sources just to close them.
func (l *Lazy) GetIfBuilt() *Aggregator {
	if !l.built.Load() {
		return nil
	}
	return l.agg
}

var defaultLazy = NewLazy(BuildFromEnv)

// Shared returns the process-wide aggregator, built from the environment
// on first use.
func Shared(ctx context.Context) *Aggregator {
	return defaultLazy.Get(ctx)
}

// BuildFromEnv registers sources in discovery order: local tools first,
// then the stream endpoint from MCP_SSE_URL, then the subprocess from
// MCP_STDIO_COMMAND. Unset variables skip their source silently; failing
// sources are contained by Register.
func BuildFromEnv(ctx context.Context, agg *Aggregator) {
	local, err := localtool.New(localtool.Config{
		Roots:              workspaceRoots(),
		IncludeFinalAnswer: finalAnswerEnabled(),
	})
	if err != nil {
		slog.Warn("Failed to create local tool source", "error", err)
	} else {
		agg.Register(ctx, local)
	}

	if url := os.Getenv(EnvStreamURL); url != "" {
		src, err := streamtool.New(streamtool.Config{URL: url})
		if err != nil {
			slog.Warn("Failed to create stream tool source", "url", url, "error", err)
		} else {
			agg.Register(ctx, src)
		}
	}

	if command := os.Getenv(EnvStdioCommand); command != "" {
		cfg, err := stdiotool.ParseCommand(command)
		if err != nil {
			slog.Warn("Failed to parse stdio command", "command", command, "error", err)
		} else if src, err := stdiotool.New(cfg); err != nil {
			slog.Warn("Failed to create stdio tool source", "command", command, "error", err)
		} else {
			agg.Register(ctx, src)
		}
	}
}

func workspaceRoots() []string {
	raw := os.Getenv(EnvWorkspace)
	if raw == "" {
		return nil
	}
	var roots []string
	for _, root := range strings.Split(raw, ":") {
		if root = strings.TrimSpace(root); root != "" {
			roots = append(roots, root)
		}
	}
	return roots
}

func finalAnswerEnabled() bool {
	enabled, err := strconv.ParseBool(os.Getenv(EnvFinalAnswer))
	return err == nil && enabled
}
