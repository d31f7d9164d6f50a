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

// Package engine executes a single reasoning step against an upstream
// model provider. The provider is selected from the resolved configuration;
// the route tag on the payload shapes the system instruction.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/tool"
)

// Payload is one fully-assembled invocation. Route is nil for auto
// (the engine picks its own strategy); QueryType is set only for the
// python route. Payloads are built fresh per call and never reused.
type Payload struct {
	Query     string            `json:"query"`
	Route     *string           `json:"route"`
	Check     bool              `json:"check"`
	Tools     []tool.Definition `json:"tools"`
	QueryType *string           `json:"query_type,omitempty"`
}

// StepResult is the outcome of one engine step. Extra carries trailing
// engine fields opaquely so callers can pass them through unchanged.
type StepResult struct {
	Observation string  `json:"observation"`
	Score       float64 `json:"score"`
	Extra       []any   `json:"extra,omitempty"`
}

// Engine performs single reasoning steps against one provider.
type Engine struct {
	provider Provider
	counter  *TokenCounter
	cfg      *config.EffectiveConfig
}

// New creates an engine from the resolved configuration.
func New(cfg *config.EffectiveConfig) (*Engine, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	counter, err := NewTokenCounter(cfg.Model)
	if err != nil {
		slog.Warn("Token counter unavailable, falling back to rough estimates",
			"model", cfg.Model, "error", err)
		counter = nil
	}

	return &Engine{provider: provider, counter: counter, cfg: cfg}, nil
}

// Step performs exactly one completion call. It does not retry: transient
// transport failures are handled below this layer, and a failed step
// surfaces to the caller as-is.
func (e *Engine) Step(ctx context.Context, payload *Payload) (*StepResult, error) {
	req := &Request{
		System:      buildInstruction(payload),
		Prompt:      payload.Query,
		Tools:       payload.Tools,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	}

	slog.Debug("Engine step",
		"provider", e.provider.Name(),
		"model", e.cfg.Model,
		"route", routeLabel(payload.Route),
		"tools", len(payload.Tools),
		"prompt_tokens_estimate", e.counter.Estimate(req.System+req.Prompt))

	completion, err := e.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine step failed: %w", err)
	}

	if completion.Text == "" {
		return nil, fmt.Errorf("engine returned an empty observation")
	}

	return &StepResult{
		Observation: completion.Text,
		Score:       scoreFor(completion.FinishReason),
		Extra:       []any{completion.FinishReason, completion.Usage},
	}, nil
}

// Close releases the underlying provider.
func (e *Engine) Close() error {
	return e.provider.Close()
}

// scoreFor maps the provider finish reason to a confidence score. A
// natural stop is full confidence; truncated or filtered output is not.
func scoreFor(finishReason string) float64 {
	switch finishReason {
	case "stop", "tool_calls", "":
		return 1.0
	default:
		return 0.5
	}
}

func routeLabel(route *string) string {
	if route == nil {
		return "auto"
	}
	return *route
}

// buildInstruction derives the system instruction from the route tag.
func buildInstruction(payload *Payload) string {
	var b strings.Builder

	switch routeLabel(payload.Route) {
	case "raw":
		b.WriteString("Answer the user's question directly and concisely.")
	case "native":
		b.WriteString("You are a helpful assistant. Use the available tools when they help answer the question.")
	case "cot":
		b.WriteString("You are a helpful assistant. Think through the problem step by step before giving your final answer.")
	case "dcot":
		b.WriteString("You are a helpful assistant. Decompose the problem, reason through each part step by step, then synthesize a final answer.")
	case "plan":
		b.WriteString("You are a helpful assistant. First write a short plan for solving the problem, then execute the plan and give the final answer.")
	case "python":
		b.WriteString(pythonInstruction(payload.QueryType))
	default:
		b.WriteString("You are a helpful assistant. Choose the most appropriate way to answer the question.")
	}

	if payload.Check {
		b.WriteString(" Before finalizing, verify your answer and correct any mistakes you find.")
	}
	return b.String()
}

func pythonInstruction(queryType *string) string {
	kind := ""
	if queryType != nil {
		kind = *queryType
	}
	switch kind {
	case "calculate":
		return "You are a helpful assistant. Solve the problem by writing a short Python program that computes the answer, then state the result."
	case "code_solution":
		return "You are a helpful assistant. Answer with a complete, working Python solution to the problem."
	case "generate":
		return "You are a helpful assistant. Generate Python code that fulfills the user's request."
	default:
		return "You are a helpful assistant. Use Python to work out the answer."
	}
}
