// Package mbtiles stores rendered noise tiles in MBTiles (SQLite) databases.
package mbtiles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrTileNotFound is returned by Reader.ReadTile for absent tiles.
var ErrTileNotFound = errors.New("mbtiles: tile not found")

// Metadata contains the MBTiles metadata fields plus the noise parameters
// the tileset was rendered with, so a tileset can be reproduced.
type Metadata struct {
	Name        string     `json:"name"`
	Format      string     `json:"format"` // png
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type,omitempty"` // baselayer or overlay
	Version     string     `json:"version,omitempty"`
	Bounds      [4]float64 `json:"bounds"`
	Center      [3]float64 `json:"center"`
	MinZoom     int        `json:"minzoom"`
	MaxZoom     int        `json:"maxzoom"`

	Seed    string `json:"seed,omitempty"`
	Octaves int    `json:"octaves,omitempty"`
	Periods []int  `json:"periods,omitempty"`
	Unbias  bool   `json:"unbias,omitempty"`
}

// ToMap converts Metadata to name/value rows.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	set := func(k, v string) {
		if v != "" {
			result[k] = v
		}
	}
	set("name", m.Name)
	set("format", m.Format)
	set("description", m.Description)
	set("type", m.Type)
	set("version", m.Version)

	// Zoom 0 is a valid pyramid root, so zooms are written whenever a max is set.
	if m.MaxZoom > 0 || m.MinZoom > 0 {
		result["minzoom"] = strconv.Itoa(m.MinZoom)
		result["maxzoom"] = strconv.Itoa(m.MaxZoom)
	}
	if m.Bounds != [4]float64{} {
		result["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}
	if m.Center != [3]float64{} {
		result["center"] = fmt.Sprintf("%.6f,%.6f,%d",
			m.Center[0], m.Center[1], int(m.Center[2]))
	}

	set("seed", m.Seed)
	if m.Octaves > 0 {
		result["octaves"] = strconv.Itoa(m.Octaves)
	}
	if len(m.Periods) > 0 {
		result["periods"] = FormatPeriods(m.Periods)
	}
	if m.Unbias {
		result["unbias"] = "true"
	}

	return result
}

func metadataFromMap(rows map[string]string) Metadata {
	meta := Metadata{
		Name:        rows["name"],
		Format:      rows["format"],
		Description: rows["description"],
		Type:        rows["type"],
		Version:     rows["version"],
		Seed:        rows["seed"],
	}
	meta.MinZoom, _ = strconv.Atoi(rows["minzoom"])
	meta.MaxZoom, _ = strconv.Atoi(rows["maxzoom"])
	meta.Octaves, _ = strconv.Atoi(rows["octaves"])
	meta.Unbias, _ = strconv.ParseBool(rows["unbias"])
	if v, ok := rows["periods"]; ok {
		meta.Periods, _ = ParsePeriods(v)
	}
	parseFloats(rows["bounds"], meta.Bounds[:])
	parseFloats(rows["center"], meta.Center[:])
	return meta
}

// parseFloats fills dst from a comma list only when the count matches.
func parseFloats(s string, dst []float64) {
	parts := strings.Split(s, ",")
	if len(parts) != len(dst) {
		return
	}
	for i, part := range parts {
		if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			dst[i] = f
		}
	}
}

// FormatPeriods renders periods as "5,5".
func FormatPeriods(periods []int) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// ParsePeriods parses "5,5" back into periods.
func ParsePeriods(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	periods := make([]int, len(parts))
	for i, part := range parts {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid period %q: %w", part, err)
		}
		periods[i] = p
	}
	return periods, nil
}
