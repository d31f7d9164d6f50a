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

// Package dispatch validates route selections, assembles invocation
// payloads, and issues single calls into the reasoning engine.
package dispatch

import (
	"context"
	"fmt"

	"github.com/minionhq/braingate/pkg/config"
	"github.com/minionhq/braingate/pkg/engine"
	"github.com/minionhq/braingate/pkg/tool"
)

// Route tags. The empty string means auto: the engine selects its own
// strategy. RoutePython additionally carries a query type.
const (
	RouteAuto   = ""
	RouteRaw    = "raw"
	RouteNative = "native"
	RouteCoT    = "cot"
	RouteDCoT   = "dcot"
	RoutePlan   = "plan"
	RoutePython = "python"
)

// Query types for the python route.
const (
	QueryTypeCalculate    = "calculate"
	QueryTypeCodeSolution = "code_solution"
	QueryTypeGenerate     = "generate"
)

var validRoutes = map[string]bool{
	RouteAuto:   true,
	RouteRaw:    true,
	RouteNative: true,
	RouteCoT:    true,
	RouteDCoT:   true,
	RoutePlan:   true,
	RoutePython: true,
}

var validQueryTypes = map[string]bool{
	QueryTypeCalculate:    true,
	QueryTypeCodeSolution: true,
	QueryTypeGenerate:     true,
}

// ValidationError reports a request field that failed validation. It
// aborts the request before any engine dispatch.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// EngineInvocationError wraps a failure of the engine step itself, as
// opposed to bad input or an unreachable tool source.
type EngineInvocationError struct {
	Err error
}

func (e *EngineInvocationError) Error() string {
	return fmt.Sprintf("engine invocation failed: %v", e.Err)
}

func (e *EngineInvocationError) Unwrap() error {
	return e.Err
}

// ValidateRoute checks route against the closed route set. An
// unrecognized non-empty tag is an error, never silently treated as auto.
func ValidateRoute(route string) error {
	if !validRoutes[route] {
		return &ValidationError{Field: "route", Value: route}
	}
	return nil
}

// BuildPayload assembles a fresh invocation payload.
//
// The empty route normalizes to nil (auto). queryType rides along only
// when route is python; for every other route a supplied queryType is
// dropped, not forwarded. A queryType outside the known set is rejected
// when it would actually be attached.
func BuildPayload(query, route string, check bool, queryType string, tools []tool.Definition) (*engine.Payload, error) {
	if err := ValidateRoute(route); err != nil {
		return nil, err
	}

	payload := &engine.Payload{
		Query: query,
		Check: check,
		Tools: tools,
	}

	if route != RouteAuto {
		r := route
		payload.Route = &r
	}

	if route == RoutePython && queryType != "" {
		if !validQueryTypes[queryType] {
			return nil, &ValidationError{Field: "query_type", Value: queryType}
		}
		qt := queryType
		payload.QueryType = &qt
	}

	return payload, nil
}

// Stepper is the engine-side surface the dispatcher calls.
type Stepper interface {
	Step(ctx context.Context, payload *engine.Payload) (*engine.StepResult, error)
	Close() error
}

// EngineFactory builds a stepper from a resolved configuration.
type EngineFactory func(cfg *config.EffectiveConfig) (Stepper, error)

func defaultFactory(cfg *config.EffectiveConfig) (Stepper, error) {
	return engine.New(cfg)
}

// Dispatcher issues single, non-retried engine invocations.
type Dispatcher struct {
	factory EngineFactory
}

// New creates a dispatcher backed by the real engine.
func New() *Dispatcher {
	return &Dispatcher{factory: defaultFactory}
}

// NewWithFactory creates a dispatcher with a custom engine factory.
func NewWithFactory(factory EngineFactory) *Dispatcher {
	return &Dispatcher{factory: factory}
}

// Invoke builds an engine from cfg and performs exactly one step. The
// step is never retried here; failures surface as EngineInvocationError
// with the underlying cause intact.
func (d *Dispatcher) Invoke(ctx context.Context, payload *engine.Payload, cfg *config.EffectiveConfig) (*engine.StepResult, error) {
	eng, err := d.factory(cfg)
	if err != nil {
		return nil, &EngineInvocationError{Err: err}
	}
	defer eng.Close()

	result, err := eng.Step(ctx, payload)
	if err != nil {
		return nil, &EngineInvocationError{Err: err}
	}
	return result, nil
}
