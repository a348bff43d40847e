package mcp

import (
	"context"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/airealtor/recall/internal/service/memory"
	"github.com/airealtor/recall/pkg/log"
)

// Server exposes the memory graph as an MCP tool set. Voice assistants
// call it over stdio; recall serve mounts the streamable HTTP handler on
// the same tool set.
type Server struct {
	mcp *server.MCPServer
}

func NewServer(svc *memory.Memory, version string) *Server {
	s := server.NewMCPServer(
		"recall",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	registerTools(s, &toolHandler{svc: svc})

	return &Server{mcp: s}
}

// ServeStdio blocks until stdin closes or the context is canceled.
func (s *Server) ServeStdio(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("serving mcp tools over stdio")

	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// HTTPHandler returns the streamable HTTP endpoint for the tool set,
// mountable under any route.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp)
}
