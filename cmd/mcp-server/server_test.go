package main

import (
	"testing"

	"github.com/eshaffer321/calimoto-go/internal/config"
	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TestServerInitialization verifies that the server can initialize without panicking
// This catches jsonschema validation errors and other startup issues
func TestServerInitialization(t *testing.T) {
	client, err := calimoto.NewClient(nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	impl := &mcp.Implementation{
		Name:    "calimoto",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	// This should not panic - if it does, the test fails
	// This catches jsonschema tag errors, tool registration issues, etc.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Server initialization panicked: %v", r)
		}
	}()

	registerTools(server, client, &config.Config{})
}
