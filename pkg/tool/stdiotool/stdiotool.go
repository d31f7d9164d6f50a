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

// Package stdiotool provides the subprocess tool source.
//
// The source launches an MCP server as a child process and speaks the
// protocol over the child's stdin/stdout using the mcp-go client.
package stdiotool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/minionhq/braingate/pkg/tool"
)

const (
	// DefaultConnectTimeout bounds subprocess spawn plus MCP handshake.
	DefaultConnectTimeout = 30 * time.Second

	protocolVersion = "2024-11-05"
	clientName      = "braingate"
	clientVersion   = "1.0.0"
)

// Config configures a subprocess tool source.
type Config struct {
	// Name identifies this source. Defaults to the command name.
	Name string

	// Command is the executable to launch.
	Command string

	// Args are passed to the command.
	Args []string

	// Env is additional environment for the subprocess.
	Env map[string]string

	// ConnectTimeout bounds Connect (default: 30s).
	ConnectTimeout time.Duration
}

// ParseCommand builds a Config from a whitespace-separated command line,
// as carried by the MCP_STDIO_COMMAND environment variable.
func ParseCommand(line string) (Config, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Config{}, fmt.Errorf("empty command line")
	}
	return Config{
		Name:    fields[0],
		Command: fields[0],
		Args:    fields[1:],
	}, nil
}

// Source is a subprocess-backed tool source.
type Source struct {
	cfg Config

	mu        sync.Mutex
	client    *client.Client
	connected bool
}

// New creates a subprocess tool source.
func New(cfg Config) (*Source, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("command is required")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return &Source{cfg: cfg}, nil
}

// Name implements tool.Source.
func (s *Source) Name() string { return s.cfg.Name }

// Kind implements tool.Source.
func (s *Source) Kind() tool.Kind { return tool.KindStdio }

// Connect launches the subprocess, performs the MCP handshake and lists
// the exposed tools.
func (s *Source) Connect(ctx context.Context) ([]tool.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil, fmt.Errorf("source %q already connected", s.cfg.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	mcpClient, err := client.NewStdioMCPClient(
		s.cfg.Command,
		convertEnv(s.cfg.Env),
		s.cfg.Args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	var tools []tool.Tool
	for _, mcpTool := range listResp.Tools {
		tools = append(tools, &stdioTool{
			source: s,
			name:   mcpTool.Name,
			desc:   mcpTool.Description,
			schema: convertSchema(mcpTool.InputSchema),
		})
	}

	s.client = mcpClient
	s.connected = true

	slog.Info("Connected to MCP server (stdio)",
		"source", s.cfg.Name,
		"command", s.cfg.Command,
		"tools", len(tools),
	)

	return tools, nil
}

// Close terminates the subprocess connection.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.connected = false
	return err
}

func convertEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// convertSchema converts an MCP tool schema to a plain map.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}

	return result
}

// stdioTool wraps one MCP tool exposed by the subprocess.
type stdioTool struct {
	source *Source
	name   string
	desc   string
	schema map[string]any
}

func (t *stdioTool) Name() string { return t.name }

func (t *stdioTool) Description() string { return t.desc }

func (t *stdioTool) Schema() map[string]any { return t.schema }

func (t *stdioTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	t.source.mu.Lock()
	mcpClient := t.source.client
	t.source.mu.Unlock()

	if mcpClient == nil {
		return nil, fmt.Errorf("MCP client not connected")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("MCP call failed: %w", err)
	}

	return parseToolResponse(resp), nil
}

// parseToolResponse flattens an MCP tool result into a map.
func parseToolResponse(resp *mcp.CallToolResult) map[string]any {
	result := make(map[string]any)
	if resp.IsError {
		for _, content := range resp.Content {
			if textContent, ok := content.(mcp.TextContent); ok {
				result["error"] = textContent.Text
				break
			}
		}
		if result["error"] == nil {
			result["error"] = "unknown error"
		}
		return result
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	if len(texts) == 1 {
		result["result"] = texts[0]
	} else if len(texts) > 1 {
		result["results"] = texts
	}

	return result
}

var _ tool.Source = (*Source)(nil)
