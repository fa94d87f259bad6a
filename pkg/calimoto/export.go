package calimoto

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/eshaffer321/calimoto-go/internal/gpx"
	"github.com/eshaffer321/calimoto-go/internal/sanitize"
	"github.com/pkg/errors"
)

// ExportCommand is one record selected for export together with its kind.
// Front ends build one per listed item.
type ExportCommand struct {
	Record Record
	Kind   Kind
}

// NewExportCommand creates a command for record
func NewExportCommand(record Record, kind Kind) ExportCommand {
	return ExportCommand{Record: record, Kind: kind}
}

// Filename returns "<sanitized name>_<route|track>.gpx"
func (c ExportCommand) Filename() string {
	name := sanitize.Filename(c.Record.Name())
	if name == "" {
		name = sanitize.Filename(c.Record.ID())
	}
	if name == "" {
		name = UnnamedRecord
	}
	return fmt.Sprintf("%s_%s.gpx", name, c.Kind.Singular())
}

// SanitizeFilename converts a display name into a filesystem-safe token
func SanitizeFilename(name string) string {
	return sanitize.Filename(name)
}

// exportService implements the ExportService interface
type exportService struct {
	client *Client
}

// Export fetches the series referenced by the record and renders GPX
func (s *exportService) Export(ctx context.Context, cmd ExportCommand) (string, error) {
	op := "export " + cmd.Kind.Singular()

	var doc string
	err := s.client.execute(ctx, op, func(ctx context.Context) error {
		track, err := s.collect(ctx, cmd)
		if err != nil {
			return err
		}
		doc, err = gpx.Encode(track)
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to export %q", cmd.Record.Name())
	}

	if logger := s.client.options.Logger; logger != nil {
		logger.Info("Exported GPX", "name", cmd.Record.Name(), "kind", cmd.Kind, "bytes", len(doc))
	}

	return doc, nil
}

// ExportToFile exports and writes the document to path
func (s *exportService) ExportToFile(ctx context.Context, cmd ExportCommand, path string) error {
	doc, err := s.Export(ctx, cmd)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	if logger := s.client.options.Logger; logger != nil {
		logger.Info("GPX file saved", "path", path)
	}

	return nil
}

// collect gathers every series the record references
func (s *exportService) collect(ctx context.Context, cmd ExportCommand) (*gpx.Track, error) {
	record := cmd.Record

	pointsURL := record.ResourceURL("points")
	if pointsURL == "" {
		return nil, &MissingDataError{Field: "points.url"}
	}

	var pointsResp struct {
		Points [][]json.Number `json:"points"`
	}
	if err := s.fetch(ctx, pointsURL, &pointsResp); err != nil {
		return nil, err
	}
	if len(pointsResp.Points) == 0 {
		return nil, &MissingDataError{Field: "points", URL: pointsURL, Reason: "no points returned"}
	}

	points := make([]gpx.Point, len(pointsResp.Points))
	for i, p := range pointsResp.Points {
		if len(p) < 2 || p[0] == "" || p[1] == "" {
			return nil, &MissingDataError{
				Field:  "points",
				URL:    pointsURL,
				Reason: fmt.Sprintf("point %d has %d coordinates", i, len(p)),
			}
		}
		points[i] = gpx.Point{Lat: p[0], Lon: p[1]}
	}

	track := &gpx.Track{
		Name:   record.Name(),
		Points: points,
	}

	if cmd.Kind != Tracks {
		return track, nil
	}

	if u := record.ResourceURL("altitudes"); u != "" {
		var resp struct {
			Altitudes []json.Number `json:"altitudes"`
		}
		if err := s.fetch(ctx, u, &resp); err != nil {
			return nil, err
		}
		track.Altitudes = resp.Altitudes
	}

	if u := record.ResourceURL("dates"); u != "" {
		var resp struct {
			Dates []json.Number `json:"dates"`
		}
		if err := s.fetch(ctx, u, &resp); err != nil {
			return nil, err
		}
		offsets, err := toOffsets(resp.Dates)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dates from %s", u)
		}
		track.Offsets = offsets
	}

	if u := record.ResourceURL("speeds"); u != "" {
		var resp struct {
			Speeds []json.Number `json:"speeds"`
		}
		if err := s.fetch(ctx, u, &resp); err != nil {
			return nil, err
		}
		track.Speeds = resp.Speeds
	}

	if raw := record.StartedAt(); raw != "" {
		start, err := ParseTimestamp(raw)
		if err != nil {
			if logger := s.client.options.Logger; logger != nil {
				logger.Warn("Could not parse start date, timestamps omitted", "value", raw, "error", err)
			}
		} else {
			track.StartDate = &start
		}
	}

	return track, nil
}

// fetch downloads one series file
func (s *exportService) fetch(ctx context.Context, url string, result interface{}) error {
	if logger := s.client.options.Logger; logger != nil {
		logger.Debug("Fetching series", "url", url)
	}
	return s.client.transport.GetJSON(ctx, url, result)
}

// toOffsets converts millisecond offsets, truncating fractional values
func toOffsets(values []json.Number) ([]int64, error) {
	offsets := make([]int64, len(values))
	for i, v := range values {
		if n, err := v.Int64(); err == nil {
			offsets[i] = n
			continue
		}
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("offset %d is not a number: %q", i, v)
		}
		offsets[i] = int64(f)
	}
	return offsets, nil
}
