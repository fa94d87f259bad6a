package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eshaffer321/calimoto-go/internal/config"
	"github.com/eshaffer321/calimoto-go/pkg/calimoto"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// calimotoTools holds the Calimoto client and implements all tool handlers
type calimotoTools struct {
	client *calimoto.Client
	config *config.Config
}

// ListItems tools - list routes or tracks
type ListItemsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of items to return (default: all)"`
}

type ItemEntry struct {
	Index      int     `json:"index" jsonschema:"Position in the list, 1 is the newest"`
	ID         string  `json:"id" jsonschema:"Calimoto object id"`
	Name       string  `json:"name" jsonschema:"Display name"`
	Date       string  `json:"date,omitempty" jsonschema:"Creation date (YYYY-MM-DD)"`
	DistanceKm float64 `json:"distanceKm" jsonschema:"Distance in kilometers"`
}

type ListItemsOutput struct {
	Kind  string      `json:"kind" jsonschema:"routes or tracks"`
	Items []ItemEntry `json:"items" jsonschema:"Items sorted newest first"`
	Count int         `json:"count" jsonschema:"Number of items returned"`
}

func (t *calimotoTools) ListRoutes(ctx context.Context, req *mcp.CallToolRequest, input ListItemsInput) (*mcp.CallToolResult, ListItemsOutput, error) {
	return t.list(ctx, calimoto.Routes, input)
}

func (t *calimotoTools) ListTracks(ctx context.Context, req *mcp.CallToolRequest, input ListItemsInput) (*mcp.CallToolResult, ListItemsOutput, error) {
	return t.list(ctx, calimoto.Tracks, input)
}

func (t *calimotoTools) list(ctx context.Context, kind calimoto.Kind, input ListItemsInput) (*mcp.CallToolResult, ListItemsOutput, error) {
	records, err := t.records(ctx, kind)
	if err != nil {
		return nil, ListItemsOutput{}, err
	}

	if input.Limit > 0 && input.Limit < len(records) {
		records = records[:input.Limit]
	}

	entries := make([]ItemEntry, 0, len(records))
	for i, r := range records {
		entries = append(entries, ItemEntry{
			Index:      i + 1,
			ID:         r.ID(),
			Name:       r.Name(),
			Date:       r.DisplayDate(),
			DistanceKm: r.DistanceKm(),
		})
	}

	return nil, ListItemsOutput{
		Kind:  string(kind),
		Items: entries,
		Count: len(entries),
	}, nil
}

// ExportGPX tool - exports one route or track
type ExportGPXInput struct {
	Kind      string `json:"kind" jsonschema:"routes or tracks"`
	ID        string `json:"id,omitempty" jsonschema:"Object id of the item (takes precedence over index)"`
	Index     int    `json:"index,omitempty" jsonschema:"Position of the item as returned by the list tools"`
	Directory string `json:"directory,omitempty" jsonschema:"Write the file into this directory instead of returning the document"`
}

type ExportGPXOutput struct {
	Name     string `json:"name" jsonschema:"Name of the exported item"`
	Filename string `json:"filename" jsonschema:"Suggested file name"`
	Path     string `json:"path,omitempty" jsonschema:"Where the file was written, if a directory was given"`
	GPX      string `json:"gpx,omitempty" jsonschema:"The GPX document, if no directory was given"`
}

func (t *calimotoTools) ExportGPX(ctx context.Context, req *mcp.CallToolRequest, input ExportGPXInput) (*mcp.CallToolResult, ExportGPXOutput, error) {
	kind, err := calimoto.ParseKind(input.Kind)
	if err != nil {
		return nil, ExportGPXOutput{}, err
	}
	if input.ID == "" && input.Index <= 0 {
		return nil, ExportGPXOutput{}, fmt.Errorf("either id or index is required")
	}

	records, err := t.records(ctx, kind)
	if err != nil {
		return nil, ExportGPXOutput{}, err
	}

	record, err := pickRecord(records, input.ID, input.Index)
	if err != nil {
		return nil, ExportGPXOutput{}, err
	}

	cmd := calimoto.NewExportCommand(record, kind)
	output := ExportGPXOutput{
		Name:     record.Name(),
		Filename: cmd.Filename(),
	}

	if input.Directory != "" {
		dir := config.ExpandPath(input.Directory)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ExportGPXOutput{}, fmt.Errorf("failed to create directory: %w", err)
		}
		output.Path = filepath.Join(dir, output.Filename)
		if err := t.client.Export.ExportToFile(ctx, cmd, output.Path); err != nil {
			return nil, ExportGPXOutput{}, fmt.Errorf("failed to export: %w", err)
		}
		return nil, output, nil
	}

	doc, err := t.client.Export.Export(ctx, cmd)
	if err != nil {
		return nil, ExportGPXOutput{}, fmt.Errorf("failed to export: %w", err)
	}
	output.GPX = doc

	return nil, output, nil
}

// records lists kind newest first, logging in first if there is no session
func (t *calimotoTools) records(ctx context.Context, kind calimoto.Kind) ([]calimoto.Record, error) {
	if _, err := t.client.GetSession(); err != nil {
		if t.config == nil || !t.config.HasCredentials() {
			return nil, fmt.Errorf("not logged in and no credentials configured")
		}
		if _, err := t.client.Auth.Login(ctx, t.config.Username, t.config.Password); err != nil {
			return nil, fmt.Errorf("failed to log in: %w", err)
		}
	}

	records, err := t.client.Items(kind).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	calimoto.SortByDate(records)
	return records, nil
}

func pickRecord(records []calimoto.Record, id string, index int) (calimoto.Record, error) {
	if id != "" {
		for _, r := range records {
			if strings.EqualFold(r.ID(), id) {
				return r, nil
			}
		}
		return nil, fmt.Errorf("no item with id %q", id)
	}
	if index < 1 || index > len(records) {
		return nil, fmt.Errorf("index %d out of range (1-%d)", index, len(records))
	}
	return records[index-1], nil
}
