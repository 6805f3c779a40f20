package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/joshp123/thinqhome/internal/climate"
)

// ClimateAPI is the climate surface the tools drive. climate.Client
// satisfies it over gRPC.
type ClimateAPI interface {
	ListEntities(ctx context.Context) ([]climate.State, error)
	GetEntity(ctx context.Context, entityID string) (climate.State, error)
	CallService(ctx context.Context, entityID, service string, data map[string]any) (climate.State, error)
}

// Server exposes climate entities as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	api       ClimateAPI
}

func NewServer(api ClimateAPI, version string) *Server {
	s := &Server{api: api}
	s.mcpServer = server.NewMCPServer(
		"thinqhome",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio serves the tools over stdio until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
