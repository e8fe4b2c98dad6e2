package main

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// binaryPath is set by TestMain after building the binary.
var binaryPath string

func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	tmp, err := os.MkdirTemp("", "themeforge-integration-*")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(tmp, "themeforge")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(tmp)
		panic("failed to build binary: " + err.Error())
	}

	code := m.Run()
	_ = os.RemoveAll(tmp)
	os.Exit(code)
}

// --- helpers ---

func skipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run integration tests")
	}
}

// startServer launches themeforge serve as a subprocess with a private
// schema cache and returns an initialized MCP client.
func startServer(t *testing.T) *client.Client {
	t.Helper()

	tmp := t.TempDir()
	env := []string{
		"THEMEFORGE_SCHEMA_CACHE_DIR=" + filepath.Join(tmp, "cache"),
		"THEMEFORGE_PIPELINE_OUT_DIR=" + filepath.Join(tmp, "out"),
		"THEMEFORGE_LOG_LEVEL=warn",
	}
	c, err := client.NewStdioMCPClient(binaryPath, env, "serve")
	require.NoError(t, err, "failed to start MCP server")
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "themeforge-integration-test",
		Version: "1.0.0",
	}

	result, err := c.Initialize(ctx, initReq)
	require.NoError(t, err, "failed to initialize MCP session")
	assert.Equal(t, "themeforge", result.ServerInfo.Name)

	return c
}

func callToolHelper(t *testing.T, c *client.Client, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	if args != nil {
		req.Params.Arguments = args
	}

	result, err := c.CallTool(ctx, req)
	require.NoError(t, err, "CallTool(%s) failed", toolName)
	return result
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected content in result")
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out), text.Text)
	return out
}

// --- integration tests ---

func TestIntegration_ListTools(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, len(tools.Tools))
	for i, tool := range tools.Tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{"extract_theme", "map_findings", "compile_theme", "schema_status"}, names)
}

func TestIntegration_SchemaStatus(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	result := callToolHelper(t, c, "schema_status", nil)
	require.False(t, result.IsError)

	out := decodeResult(t, result)
	assert.Greater(t, out["tokens"].(float64), 0.0)
	assert.Contains(t, out["groups"], "colors")
}

func TestIntegration_CompileTheme(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	t.Run("valid theme", func(t *testing.T) {
		result := callToolHelper(t, c, "compile_theme", map[string]any{
			"theme": `{"colors":{"primary":"#0f766e"}}`,
		})
		require.False(t, result.IsError)

		out := decodeResult(t, result)
		assert.Equal(t, true, out["ok"])
		assert.Contains(t, out["css"], "--pi-color-primary: #0f766e;")
	})

	t.Run("rejected theme is data", func(t *testing.T) {
		result := callToolHelper(t, c, "compile_theme", map[string]any{
			"theme": `{"colors":{"primary":""}}`,
		})
		require.False(t, result.IsError)

		out := decodeResult(t, result)
		assert.Equal(t, false, out["ok"])
		assert.Contains(t, out["errors"], "Missing token: colors.primary")
		assert.NotNil(t, out["theme"])
	})

	t.Run("invalid theme is a tool error", func(t *testing.T) {
		result := callToolHelper(t, c, "compile_theme", map[string]any{"theme": `{nope`})
		assert.True(t, result.IsError)
	})
}

func TestIntegration_ExtractLocalSite(t *testing.T) {
	skipIfNotIntegration(t)
	c := startServer(t)

	site := filepath.Join(t.TempDir(), "index.html")
	html := `<html><head><style>:root { --primary-color: #7c3aed; } body { font-family: "Inter", sans-serif; }</style></head><body></body></html>`
	require.NoError(t, os.WriteFile(site, []byte(html), 0o644))

	result := callToolHelper(t, c, "extract_theme", map[string]any{"url": site})
	require.False(t, result.IsError)

	out := decodeResult(t, result)
	assert.NotEmpty(t, out["runId"])
	assert.Equal(t, "#7c3aed", out["theme"].(map[string]any)["colors"].(map[string]any)["primary"])
}
