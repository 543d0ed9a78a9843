package mcpserver

import (
	"testing"

	"mcprouter/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMCPClientInterfaceCompliance verifies that all client types implement the MCPClient interface.
func TestMCPClientInterfaceCompliance(t *testing.T) {
	var _ MCPClient = (*StdioClient)(nil)
	var _ MCPClient = (*SSEClient)(nil)
	var _ MCPClient = (*StreamableHTTPClient)(nil)
}

// TestNewMCPClientFromType tests the factory function for creating MCP clients
func TestNewMCPClientFromType(t *testing.T) {
	tests := []struct {
		name        string
		transport   store.Transport
		config      MCPClientConfig
		wantErr     bool
		errContains string
	}{
		{
			name:      "valid stdio client",
			transport: store.TransportStdio,
			config: MCPClientConfig{
				Command: "echo",
				Args:    []string{"hello"},
			},
			wantErr: false,
		},
		{
			name:      "stdio client with env",
			transport: store.TransportStdio,
			config: MCPClientConfig{
				Command: "echo",
				Args:    []string{"hello"},
				Env:     map[string]string{"TEST": "value"},
			},
			wantErr: false,
		},
		{
			name:        "stdio client missing command",
			transport:   store.TransportStdio,
			config:      MCPClientConfig{},
			wantErr:     true,
			errContains: "command is required for stdio transport",
		},
		{
			name:      "valid http client",
			transport: store.TransportHTTP,
			config: MCPClientConfig{
				URL: "http://example.com/mcp",
			},
			wantErr: false,
		},
		{
			name:      "http client with headers",
			transport: store.TransportHTTP,
			config: MCPClientConfig{
				URL:     "http://example.com/mcp",
				Headers: map[string]string{"Authorization": "Bearer token"},
			},
			wantErr: false,
		},
		{
			name:        "http client missing URL",
			transport:   store.TransportHTTP,
			config:      MCPClientConfig{},
			wantErr:     true,
			errContains: "url is required for http transport",
		},
		{
			name:      "valid sse client",
			transport: store.TransportSSE,
			config: MCPClientConfig{
				URL: "http://example.com/sse",
			},
			wantErr: false,
		},
		{
			name:      "sse client with headers",
			transport: store.TransportSSE,
			config: MCPClientConfig{
				URL:     "http://example.com/sse",
				Headers: map[string]string{"X-API-Key": "secret"},
			},
			wantErr: false,
		},
		{
			name:        "sse client missing URL",
			transport:   store.TransportSSE,
			config:      MCPClientConfig{},
			wantErr:     true,
			errContains: "url is required for sse transport",
		},
		{
			name:        "unsupported transport",
			transport:   store.Transport("invalid"),
			config:      MCPClientConfig{},
			wantErr:     true,
			errContains: "unsupported transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewMCPClientFromType(tt.transport, tt.config)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, client)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

// TestNewStdioClient tests the StdioClient constructor
func TestNewStdioClient(t *testing.T) {
	client := NewStdioClient("echo", []string{"hello"})

	assert.NotNil(t, client)
	assert.Equal(t, "echo", client.command)
	assert.Equal(t, []string{"hello"}, client.args)
	assert.NotNil(t, client.env)
	assert.Empty(t, client.env)
	assert.False(t, client.connected)
}

// TestNewStdioClientWithEnv tests the StdioClient constructor with environment variables
func TestNewStdioClientWithEnv(t *testing.T) {
	env := map[string]string{"KEY": "value", "ANOTHER": "test"}
	client := NewStdioClientWithEnv("echo", []string{"hello"}, env)

	assert.NotNil(t, client)
	assert.Equal(t, "echo", client.command)
	assert.Equal(t, []string{"hello"}, client.args)
	assert.Equal(t, env, client.env)
	assert.False(t, client.connected)
}
