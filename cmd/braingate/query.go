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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minionhq/braingate/pkg/gateway"
)

// QueryCmd runs a single query through the gateway and prints the result.
type QueryCmd struct {
	Query string `arg:"" help:"The query text."`

	Route     string   `help:"Reasoning route (raw, native, cot, dcot, plan, python; empty = auto)."`
	QueryType string   `name:"query-type" help:"Query type for the python route (calculate, code_solution, generate)."`
	Check     bool     `help:"Ask the engine to verify its answer."`
	Tools     bool     `help:"Attach the aggregated tool catalog." default:"true" negatable:""`
	Preset    string   `help:"Named model preset (gpt-4o, gpt-4o-mini, gpt-4.1, o4-mini)."`
	Override  []string `short:"o" help:"Config override as key=value (e.g. -o temperature=0.2)." placeholder:"KEY=VALUE"`

	JSON bool `help:"Print the full response as JSON."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	ctx := context.Background()

	overrides, err := parseOverrides(c.Override)
	if err != nil {
		return err
	}

	gw := gateway.New()
	defer func() {
		if err := gw.Shutdown(context.Background()); err != nil {
			slog.Warn("Tool catalog shutdown reported errors", "error", err)
		}
	}()

	resp, err := gw.Handle(ctx, &gateway.Request{
		Query:     c.Query,
		Route:     c.Route,
		QueryType: c.QueryType,
		Check:     c.Check,
		UseTools:  c.Tools,
		Preset:    c.Preset,
		Overrides: overrides,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(resp.Observation)
	fmt.Printf("\n(score: %.2f, model: %s, %dms)\n", resp.Score, resp.Model, resp.DurationMs)
	return nil
}

// parseOverrides turns key=value flags into an override map. Values stay
// strings; the resolver handles numeric conversion.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	overrides := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid override %q: expected key=value", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}
