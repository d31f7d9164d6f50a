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

	"github.com/minionhq/braingate/pkg/aggregator"
)

// ToolsCmd lists the aggregated tool catalog.
type ToolsCmd struct {
	JSON bool `help:"Print the catalog as JSON."`
}

func (c *ToolsCmd) Run(cli *CLI) error {
	ctx := context.Background()

	agg := aggregator.Shared(ctx)
	defer func() {
		if err := agg.Shutdown(); err != nil {
			slog.Warn("Tool catalog shutdown reported errors", "error", err)
		}
	}()

	statuses := agg.Status()
	failures := agg.Failures()

	if c.JSON {
		out, err := json.MarshalIndent(map[string]any{
			"tools":    statuses,
			"failures": failureStrings(failures),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(statuses) == 0 {
		fmt.Println("No tools registered.")
	}
	for _, status := range statuses {
		fmt.Printf("%-20s %-8s %-10s %s\n", status.Name, status.Kind, status.Source, status.Description)
	}
	for _, failure := range failures {
		fmt.Printf("WARN source %q unavailable: %v\n", failure.Source, failure.Err)
	}
	return nil
}

func failureStrings(failures []*aggregator.SourceError) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Error())
	}
	return out
}
