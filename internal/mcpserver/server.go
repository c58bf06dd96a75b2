// Package mcpserver exposes the issue dispatcher as an MCP tool over stdio.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/steveyegge/issueboard/internal/manager"
)

const instructions = `issueboard tracks work as a tree of issues. Ids are slash paths: "5" is a
top-level issue and "5/2" is its second sub issue. Use the issue_manager tool:
list to see what exists, read for the full history, create to add work (pass
the parent in 'issue' for a sub issue), update to record progress, and assign
to hand an issue to another agent. Always pass your own name as 'caller'.`

// Server wraps an MCP server with the issue_manager tool registered.
type Server struct {
	mcp  *server.MCPServer
	tool *IssueManagerTool
}

// New creates the MCP server. defaultCaller is used for calls that omit caller.
func New(mgr *manager.Manager, version, defaultCaller string) *Server {
	s := server.NewMCPServer(
		"issueboard",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	tool := NewIssueManagerTool(mgr, defaultCaller)
	s.AddTool(tool.Definition(), tool.Handle)
	return &Server{mcp: s, tool: tool}
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves requests on stdin/stdout until EOF or a signal.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
