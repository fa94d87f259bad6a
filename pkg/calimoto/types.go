package calimoto

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	internalTypes "github.com/eshaffer321/calimoto-go/internal/types"
	"github.com/pkg/errors"
)

// Session is the authenticated state permitting data queries
type Session = internalTypes.Session

// Credentials are the Parse application keys scraped from the web app
type Credentials = internalTypes.Credentials

// Kind selects one of the two record classes
type Kind string

const (
	// Routes are planned routes
	Routes Kind = "routes"

	// Tracks are rides recorded with the app
	Tracks Kind = "tracks"
)

// ParseKind accepts "routes"/"route" and "tracks"/"track"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "routes", "route":
		return Routes, nil
	case "tracks", "track":
		return Tracks, nil
	}
	return "", errors.Errorf("unknown kind %q (want routes or tracks)", s)
}

// ClassName returns the Parse class holding records of this kind
func (k Kind) ClassName() string {
	if k == Tracks {
		return "tblTracks"
	}
	return "tblRoutes"
}

// Singular returns "route" or "track"
func (k Kind) Singular() string {
	return strings.TrimSuffix(string(k), "s")
}

// UnnamedRecord is used when a record carries no name
const UnnamedRecord = "Unnamed"

// Record is one route or track as returned by the backend. Only a handful
// of fields are interpreted; everything else is kept as-is.
type Record map[string]interface{}

// ID returns the Parse objectId
func (r Record) ID() string {
	return r.stringField("objectId")
}

// Name returns the record name, or "Unnamed" if it has none
func (r Record) Name() string {
	if name, ok := r["name"].(string); ok {
		return name
	}
	return UnnamedRecord
}

// Distance returns the distance in meters
func (r Record) Distance() float64 {
	return toFloat(r["distance"])
}

// DistanceKm returns the distance in kilometers rounded to 0.1
func (r Record) DistanceKm() float64 {
	return math.Round(r.Distance()/100) / 10
}

// CreatedAt returns createdAt, falling back to timeCreated.iso
func (r Record) CreatedAt() string {
	if v := r.stringField("createdAt"); v != "" {
		return v
	}
	return r.nestedString("timeCreated", "iso")
}

// StartedAt returns timeCreated.iso, the moment recording started, falling
// back to createdAt. Track date offsets are relative to this value.
func (r Record) StartedAt() string {
	if v := r.nestedString("timeCreated", "iso"); v != "" {
		return v
	}
	return r.stringField("createdAt")
}

// DisplayDate returns the date part of CreatedAt
func (r Record) DisplayDate() string {
	d := r.CreatedAt()
	if len(d) > 10 {
		return d[:10]
	}
	return d
}

// ResourceURL returns the url of a Parse file field such as "points"
func (r Record) ResourceURL(field string) string {
	return r.nestedString(field, "url")
}

func (r Record) stringField(key string) string {
	s, _ := r[key].(string)
	return s
}

func (r Record) nestedString(key, sub string) string {
	m, ok := r[key].(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := m[sub].(string)
	return s
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// SortByDate orders records newest first by CreatedAt. Records without a
// date go last.
func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt() > records[j].CreatedAt()
	})
}
