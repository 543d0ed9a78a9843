package mcpserver

import (
	"testing"
)

// TestErrorHandling - Process management is now handled by mark3labs/mcp-go library
func TestErrorHandling(t *testing.T) {
	t.Skip("Process management is now handled by mark3labs/mcp-go library")
}

// TestStartAndManageIndividualMcpServer - Functionality is internal to mark3labs/mcp-go
func TestStartAndManageIndividualMcpServer(t *testing.T) {
	t.Skip("Process management functionality is internal to mark3labs/mcp-go")
}

// TestPipeFails - Pipe creation is handled internally by mark3labs/mcp-go
func TestPipeFails(t *testing.T) {
	t.Skip("Pipe creation is handled internally by mark3labs/mcp-go")
}
