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

// Package localtool provides the in-process tool source: sandboxed
// filesystem tools plus the final-answer terminator.
package localtool

import (
	"context"
	"fmt"

	"github.com/minionhq/braingate/pkg/tool"
)

// Config configures the local tool source.
type Config struct {
	// Roots are the workspace directories file tools may access.
	// Defaults to the current directory.
	Roots []string

	// IncludeFinalAnswer registers the final_answer terminator tool.
	// Off by default: most engines synthesize their own terminator.
	IncludeFinalAnswer bool
}

// Source is the in-process tool source.
type Source struct {
	cfg     Config
	sandbox *sandbox
}

// New creates a local tool source.
func New(cfg Config) (*Source, error) {
	sb, err := newSandbox(cfg.Roots)
	if err != nil {
		return nil, err
	}
	return &Source{cfg: cfg, sandbox: sb}, nil
}

// Name implements tool.Source.
func (s *Source) Name() string { return "local" }

// Kind implements tool.Source.
func (s *Source) Kind() tool.Kind { return tool.KindLocal }

// Connect implements tool.Source. Local tools have no backend; Connect
// only assembles the tool list.
func (s *Source) Connect(ctx context.Context) ([]tool.Tool, error) {
	tools := []tool.Tool{
		&readFileTool{sandbox: s.sandbox},
		&listDirectoryTool{sandbox: s.sandbox},
		&fileInfoTool{sandbox: s.sandbox},
	}
	if s.cfg.IncludeFinalAnswer {
		tools = append(tools, &finalAnswerTool{})
	}
	return tools, nil
}

// Close implements tool.Source.
func (s *Source) Close() error { return nil }

type finalAnswerArgs struct {
	Answer string `json:"answer" jsonschema:"required,description=The final answer to return to the user."`
}

// finalAnswerTool terminates a reasoning run by echoing the final answer.
type finalAnswerTool struct{}

func (t *finalAnswerTool) Name() string { return "final_answer" }

func (t *finalAnswerTool) Description() string {
	return "Provide the final answer and finish the task."
}

func (t *finalAnswerTool) Schema() map[string]any {
	return mustSchema[finalAnswerArgs]()
}

func (t *finalAnswerTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	answer, ok := args["answer"].(string)
	if !ok {
		return nil, fmt.Errorf("answer must be a string")
	}
	return map[string]any{"result": answer}, nil
}

var _ tool.Source = (*Source)(nil)
