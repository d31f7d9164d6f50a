package stdiotool

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cfg, err := ParseCommand("python server.py --port 8080")
	require.NoError(t, err)

	assert.Equal(t, "python", cfg.Command)
	assert.Equal(t, []string{"server.py", "--port", "8080"}, cfg.Args)
	assert.Equal(t, "python", cfg.Name)
}

func TestParseCommand_Empty(t *testing.T) {
	_, err := ParseCommand("   ")
	assert.Error(t, err)
}

func TestNew_RequiresCommand(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	src, err := New(Config{Command: "mcp-server"})
	require.NoError(t, err)

	assert.Equal(t, "mcp-server", src.Name())
	assert.Equal(t, DefaultConnectTimeout, src.cfg.ConnectTimeout)
}

func TestConvertEnv(t *testing.T) {
	assert.Nil(t, convertEnv(nil))

	env := convertEnv(map[string]string{"KEY": "value"})
	assert.Equal(t, []string{"KEY=value"}, env)
}

func TestParseToolResponse_Text(t *testing.T) {
	resp := &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "4"}},
	}
	result := parseToolResponse(resp)
	assert.Equal(t, "4", result["result"])
}

func TestParseToolResponse_MultipleTexts(t *testing.T) {
	resp := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "a"},
			mcp.TextContent{Type: "text", Text: "b"},
		},
	}
	result := parseToolResponse(resp)
	assert.Equal(t, []string{"a", "b"}, result["results"])
}

func TestParseToolResponse_Error(t *testing.T) {
	resp := &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "division by zero"}},
	}
	result := parseToolResponse(resp)
	assert.Equal(t, "division by zero", result["error"])
}

func TestClose_Idempotent(t *testing.T) {
	src, err := New(Config{Command: "mcp-server"})
	require.NoError(t, err)

	assert.NoError(t, src.Close())
	assert.NoError(t, src.Close())
}
