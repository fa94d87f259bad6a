package main

import (
	"context"
	"log"

	"github.com/eshaffer321/calimoto-go/internal/config"
	"github.com/eshaffer321/calimoto-go/internal/logging"
	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if !cfg.HasCredentials() && cfg.SessionFile == "" {
		log.Fatal("CALIMOTO_USERNAME and CALIMOTO_PASSWORD (or CALIMOTO_SESSION_FILE) are required")
	}

	// stdout carries the MCP protocol, zap writes to stderr
	logger, err := logging.NewZap(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := newClient(cfg, calimoto.ClientOptions{Logger: logger})
	if err != nil {
		log.Fatalf("failed to initialize Calimoto client: %v", err)
	}
	defer client.Close()

	impl := &mcp.Implementation{
		Name:    "calimoto",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	registerTools(server, client, cfg)

	// Run server over stdio transport (for Claude Desktop)
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// newClient builds the client from cfg on top of opts. Configured credentials
// are handed to the client so a session restored from file can be renewed.
func newClient(cfg *config.Config, opts calimoto.ClientOptions) (*calimoto.Client, error) {
	opts.SessionFile = cfg.SessionFile
	opts.SentryDSN = cfg.SentryDSN

	client, err := calimoto.NewClient(&opts)
	if err != nil {
		return nil, err
	}
	if cfg.HasCredentials() {
		client.Auth.SetCredentials(cfg.Username, cfg.Password)
	}
	return client, nil
}

func registerTools(server *mcp.Server, client *calimoto.Client, cfg *config.Config) {
	tools := &calimotoTools{client: client, config: cfg}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_routes",
		Description: "List the planned routes of the Calimoto account, newest first. Returns the position, id, name, creation date and distance in km of each route.",
	}, tools.ListRoutes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tracks",
		Description: "List the recorded tracks of the Calimoto account, newest first. Returns the position, id, name, recording date and distance in km of each track.",
	}, tools.ListTracks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_gpx",
		Description: "Export one route or track as a GPX 1.1 document. Select the item by id or by its position in list_routes/list_tracks. Tracks include elevation, timestamps and speed when recorded. Optionally writes the file into a directory.",
	}, tools.ExportGPX)
}
