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

// Package tool defines the interfaces shared by tool sources and the
// aggregation layer.
//
// A Tool is a single invokable capability with a JSON-schema parameter
// description. A Source is a provider of tools: in-process implementations,
// subprocess servers spoken to over stdio, or long-lived HTTP/SSE endpoints.
// Sources connect lazily and report their tools once connected.
package tool

import "context"

// Kind classifies how a source hosts its tools.
type Kind string

const (
	KindLocal  Kind = "local"
	KindStdio  Kind = "stdio"
	KindStream Kind = "stream"
)

// Tool is a single invokable capability.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns a human-readable description of what the tool
	// does. Consumed by the engine to decide when to invoke it.
	Description() string

	// Schema returns the JSON schema for the tool's parameters.
	// Returns nil if the tool takes no parameters.
	Schema() map[string]any

	// Call executes the tool with the given arguments.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Source provides a set of tools from one backend.
type Source interface {
	// Name identifies the source in logs and status listings.
	Name() string

	// Kind reports how the source hosts its tools.
	Kind() Kind

	// Connect establishes the backend connection and returns the tools it
	// exposes. Implementations must be safe to call once per source.
	Connect(ctx context.Context) ([]Tool, error)

	// Close tears down the backend connection.
	Close() error
}

// Definition is the engine-facing view of a tool: name, description and
// parameter schema, detached from the invokable implementation.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToDefinition converts a tool to its definition.
func ToDefinition(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

// Definitions converts a tool list, preserving order.
func Definitions(tools []Tool) []Definition {
	defs := make([]Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, ToDefinition(t))
	}
	return defs
}
