// Package gpx renders recorded route and track series as a GPX 1.1 document
// with Garmin TrackPointExtension speeds.
//
// Every optional series is aligned by index to the points. A series is
// consulted only for indices below its own length, so a short series simply
// stops contributing; nothing is interpolated.
package gpx

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"time"

	internalTypes "github.com/eshaffer321/calimoto-go/internal/types"
)

const (
	// Creator is written into the gpx root element
	Creator = "Calimoto Route Exporter"

	// TimeLayout formats point timestamps with millisecond precision and a numeric offset
	TimeLayout = "2006-01-02T15:04:05.000-07:00"
)

const header = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="` + Creator + `"
    xmlns="http://www.topografix.com/GPX/1/1"
    xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v1"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xsi:schemaLocation="http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd
    http://www.garmin.com/xmlschemas/TrackPointExtension/v1 http://www.garmin.com/xmlschemas/TrackPointExtensionv1.xsd">
  <trk>
    <name>`

const footer = `    </trkseg>
  </trk>
</gpx>`

// Point is a single latitude/longitude pair. Values keep the textual form
// they had in the source JSON.
type Point struct {
	Lat json.Number
	Lon json.Number
}

// Track holds everything needed to render one document
type Track struct {
	Name   string
	Points []Point

	// Altitudes in meters, one per point
	Altitudes []json.Number

	// Offsets are signed millisecond offsets from StartDate
	Offsets []int64

	// Speeds in meters per second, written unchanged
	Speeds []json.Number

	// StartDate anchors Offsets; without it no <time> is written
	StartDate *time.Time
}

// Encode renders the track. It fails only when there are no points.
func Encode(t *Track) (string, error) {
	if t == nil || len(t.Points) == 0 {
		return "", &internalTypes.EncodingError{Reason: "no points"}
	}

	var b strings.Builder
	b.Grow(len(header) + len(footer) + len(t.Points)*96)

	b.WriteString(header)
	// EscapeText only fails on writer errors; strings.Builder never returns one
	_ = xml.EscapeText(&b, []byte(t.Name))
	b.WriteString("</name>\n    <trkseg>\n")

	for i, p := range t.Points {
		b.WriteString(`      <trkpt lat="`)
		b.WriteString(p.Lat.String())
		b.WriteString(`" lon="`)
		b.WriteString(p.Lon.String())
		b.WriteString(`">`)

		if i < len(t.Altitudes) {
			b.WriteString("<ele>")
			b.WriteString(t.Altitudes[i].String())
			b.WriteString("</ele>")
		}

		if i < len(t.Offsets) && t.StartDate != nil {
			ts := t.StartDate.Add(time.Duration(t.Offsets[i]) * time.Millisecond)
			b.WriteString("<time>")
			b.WriteString(ts.Format(TimeLayout))
			b.WriteString("</time>")
		}

		if i < len(t.Speeds) {
			b.WriteString("\n        <extensions>\n          <gpxtpx:TrackPointExtension>\n            <gpxtpx:speed>")
			b.WriteString(t.Speeds[i].String())
			b.WriteString("</gpxtpx:speed>\n          </gpxtpx:TrackPointExtension>\n        </extensions>")
		}

		b.WriteString("\n      </trkpt>\n")
	}

	b.WriteString(footer)
	return b.String(), nil
}
