// Package main provides the execintel MCP server: it exposes one tool,
// analyze_test_logs, so an MCP client (e.g. Claude) can run the same
// pipeline the CLI runs and get back the bit-stable §6 result document
// (spec §6, adapted from the teacher's src/mcp server).
package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	server := newServer()
	if err := server.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		log.Fatalf("execintel-mcp: server error: %v", err)
	}
}

// Server wraps the MCP SDK server with execintel's tools.
type Server struct {
	server *mcp.Server
}

func newServer() *Server {
	impl := &mcp.Implementation{Name: "execintel", Version: "1.0.0"}
	mcpServer := mcp.NewServer(impl, nil)

	registerAnalyzeTestLogsTool(mcpServer)

	return &Server{server: mcpServer}
}

// Run starts the MCP server over stdin/stdout.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	transport := &mcp.StdioTransport{}
	return s.server.Run(ctx, transport)
}
