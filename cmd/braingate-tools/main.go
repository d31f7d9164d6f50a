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

// Command braingate-tools is an example MCP tool server. It exists to
// exercise the gateway's stdio and stream tool sources:
//
//	braingate-tools                      # stdio transport
//	braingate-tools --transport sse      # SSE transport on :8765
//	MCP_STDIO_COMMAND="braingate-tools" braingate tools
package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CLI defines the tool server flags.
type CLI struct {
	Transport string `help:"Transport mode: stdio or sse." default:"stdio" enum:"stdio,sse"`
	Port      int    `help:"Port for the SSE transport." default:"8765"`
	BaseURL   string `name:"base-url" help:"Base URL for the SSE transport (default: http://localhost:<port>)."`
}

func main() {
	cli := CLI{}
	kong.Parse(&cli,
		kong.Name("braingate-tools"),
		kong.Description("Example MCP tool server for braingate."),
		kong.UsageOnError(),
	)

	s := server.NewMCPServer(
		"braingate-tools",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	registerTools(s)

	switch cli.Transport {
	case "sse":
		baseURL := cli.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", cli.Port)
		}

		sseServer := server.NewSSEServer(s,
			server.WithBaseURL(baseURL),
			server.WithKeepAlive(true),
		)

		fmt.Fprintf(os.Stderr, "SSE server on :%d (endpoint %s/sse)\n", cli.Port, baseURL)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cli.Port), sseServer); err != nil {
			fmt.Fprintf(os.Stderr, "SSE server error: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := server.ServeStdio(s); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	}
}

func registerTools(s *server.MCPServer) {
	calculator := mcp.NewTool("calculator",
		mcp.WithDescription("Perform basic arithmetic on two numbers."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of: add, subtract, multiply, divide"),
		),
		mcp.WithNumber("a",
			mcp.Required(),
			mcp.Description("First operand"),
		),
		mcp.WithNumber("b",
			mcp.Required(),
			mcp.Description("Second operand"),
		),
	)
	s.AddTool(calculator, handleCalculator)

	echo := mcp.NewTool("echo",
		mcp.WithDescription("Echo the given text back."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to echo"),
		),
	)
	s.AddTool(echo, handleEcho)

	timestamp := mcp.NewTool("timestamp",
		mcp.WithDescription("Return the current time, optionally in a custom Go layout."),
		mcp.WithString("layout",
			mcp.Description("Go time layout (default: RFC3339)"),
		),
	)
	s.AddTool(timestamp, handleTimestamp)

	mathFunctions := mcp.NewTool("math_functions",
		mcp.WithDescription("Evaluate a named math function: sqrt, abs, floor, ceil, log, exp."),
		mcp.WithString("function",
			mcp.Required(),
			mcp.Description("Function name"),
		),
		mcp.WithNumber("value",
			mcp.Required(),
			mcp.Description("Input value"),
		),
	)
	s.AddTool(mathFunctions, handleMathFunctions)
}

func arguments(request mcp.CallToolRequest) (map[string]any, bool) {
	args, ok := request.Params.Arguments.(map[string]any)
	return args, ok
}

func floatArg(args map[string]any, name string) (float64, bool) {
	v, ok := args[name].(float64)
	return v, ok
}

func handleCalculator(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	operation, _ := args["operation"].(string)
	a, okA := floatArg(args, "a")
	b, okB := floatArg(args, "b")
	if !okA || !okB {
		return mcp.NewToolResultError("a and b must be numbers"), nil
	}

	var result float64
	switch operation {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return mcp.NewToolResultError("division by zero"), nil
		}
		result = a / b
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown operation: %q", operation)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%g", result)), nil
}

func handleEcho(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	text, ok := args["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text parameter is required"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func handleTimestamp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layout := time.RFC3339
	if args, ok := arguments(request); ok {
		if custom, ok := args["layout"].(string); ok && custom != "" {
			layout = custom
		}
	}
	return mcp.NewToolResultText(time.Now().UTC().Format(layout)), nil
}

func handleMathFunctions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	name, _ := args["function"].(string)
	value, okV := floatArg(args, "value")
	if !okV {
		return mcp.NewToolResultError("value must be a number"), nil
	}

	var result float64
	switch name {
	case "sqrt":
		if value < 0 {
			return mcp.NewToolResultError("sqrt of negative number"), nil
		}
		result = math.Sqrt(value)
	case "abs":
		result = math.Abs(value)
	case "floor":
		result = math.Floor(value)
	case "ceil":
		result = math.Ceil(value)
	case "log":
		if value <= 0 {
			return mcp.NewToolResultError("log requires a positive number"), nil
		}
		result = math.Log(value)
	case "exp":
		result = math.Exp(value)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown function: %q", name)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%g", result)), nil
}
