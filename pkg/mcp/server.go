package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/deconz2z2m/pkg/config"
	"github.com/urmzd/deconz2z2m/pkg/db"
	"github.com/urmzd/deconz2z2m/pkg/migrate"
	"github.com/urmzd/deconz2z2m/pkg/network"
	"github.com/urmzd/deconz2z2m/pkg/serialport"
)

// Deps are the services the tools run against. Unset services are built
// from Settings.
type Deps struct {
	Settings  config.Settings
	Store     *db.DB // optional
	Sources   migrate.SourceFactory
	ListPorts func() ([]serialport.Port, error)
	Generator network.Generator
}

// Server wraps the MCP server with the migrator's read-only tools
type Server struct {
	mcpServer *server.MCPServer
	deps      Deps
}

// NewServer creates a new MCP server
func NewServer(deps Deps) *Server {
	if deps.Sources == nil {
		deps.Sources = migrate.DefaultSourceFactory(deps.Settings)
	}
	if deps.ListPorts == nil {
		deps.ListPorts = serialport.List
	}
	if deps.Generator == nil {
		deps.Generator = network.NewInsecureGenerator()
	}

	s := &Server{deps: deps}

	s.mcpServer = server.NewMCPServer(
		"deconz2z2m",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
