// Package tile maps z/x/y web-map tiles onto the noise domain.
package tile

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const earthRadius = 6378137.0 // meters

// MaxZoom is the deepest zoom level the tile commands accept.
const MaxZoom = 18

// Coords represents a tile coordinate in the Web Mercator tile system (z/x/y)
type Coords struct {
	Z uint32 // Zoom level
	X uint32 // Column
	Y uint32 // Row
}

// NewCoords creates a new Coords from zoom, x, y values
func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// String returns the tile coordinate as "z{zoom}_x{x}_y{y}"
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Path returns the flat file name for this tile
func (c Coords) Path(extension string) string {
	return fmt.Sprintf("%s.%s", c.String(), extension)
}

// Valid reports whether x and y lie inside the zoom level's grid.
func (c Coords) Valid() bool {
	if c.Z > MaxZoom {
		return false
	}
	n := uint32(1) << c.Z
	return c.X < n && c.Y < n
}

// Tile returns the maptile.Tile for this coordinate
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

// Bounds returns [minLon, minLat, maxLon, maxLat] in WGS84
func (c Coords) Bounds() [4]float64 {
	bound := c.Tile().Bound()
	return [4]float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}
}

// BoundsMercator returns [minX, minY, maxX, maxY] in Web Mercator meters
func (c Coords) BoundsMercator() [4]float64 {
	b := c.Bounds()
	minX, minY := lonLatToMercator(b[0], b[1])
	maxX, maxY := lonLatToMercator(b[2], b[3])
	return [4]float64{minX, minY, maxX, maxY}
}

// Center returns the center point of the tile in WGS84 (lon, lat)
func (c Coords) Center() (float64, float64) {
	b := c.Bounds()
	return (b[0] + b[2]) / 2.0, (b[1] + b[3]) / 2.0
}

func lonLatToMercator(lon, lat float64) (float64, float64) {
	x := earthRadius * lon * math.Pi / 180.0
	latRad := lat * math.Pi / 180.0
	y := earthRadius * math.Log(math.Tan(math.Pi/4.0+latRad/2.0))
	return x, y
}

func mercatorToLonLat(x, y float64) (float64, float64) {
	lon := (x / earthRadius) * 180.0 / math.Pi
	lat := (math.Atan(math.Exp(y/earthRadius)) - math.Pi/4.0) * 2.0 * 180.0 / math.Pi
	return lon, lat
}

// ParseCoords parses a tile string like "z3_x4_y2" into Coords
func ParseCoords(s string) (Coords, error) {
	var c Coords
	if _, err := fmt.Sscanf(s, "z%d_x%d_y%d", &c.Z, &c.X, &c.Y); err != nil {
		return c, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	return c, nil
}

// All returns every tile of the world for zoom levels zoomMin..zoomMax,
// ordered by zoom, then column, then row.
func All(zoomMin, zoomMax int) []Coords {
	tiles := make([]Coords, 0, Count(zoomMin, zoomMax))
	for z := zoomMin; z <= zoomMax; z++ {
		n := uint32(1) << uint(z)
		for x := uint32(0); x < n; x++ {
			for y := uint32(0); y < n; y++ {
				tiles = append(tiles, NewCoords(uint32(z), x, y))
			}
		}
	}
	return tiles
}

// Count returns the number of tiles All would return.
func Count(zoomMin, zoomMax int) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		count += 1 << (2 * uint(z))
	}
	return count
}

// TilesInBBox returns all tile coordinates within a bounding box across a zoom range.
// bbox: [minLon, minLat, maxLon, maxLat] in WGS84
func TilesInBBox(bbox [4]float64, zoomMin, zoomMax int) []Coords {
	tiles := make([]Coords, 0, TileCount(bbox, zoomMin, zoomMax))
	for z := zoomMin; z <= zoomMax; z++ {
		minX, maxX, minY, maxY := bboxRange(bbox, maptile.Zoom(z))
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				tiles = append(tiles, NewCoords(uint32(z), x, y))
			}
		}
	}
	return tiles
}

// TileCount returns the number of tiles TilesInBBox would return.
func TileCount(bbox [4]float64, zoomMin, zoomMax int) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		minX, maxX, minY, maxY := bboxRange(bbox, maptile.Zoom(z))
		count += int(maxX-minX+1) * int(maxY-minY+1)
	}
	return count
}

func bboxRange(bbox [4]float64, zoom maptile.Zoom) (minX, maxX, minY, maxY uint32) {
	minTile := maptile.At(orb.Point{bbox[0], bbox[1]}, zoom)
	maxTile := maptile.At(orb.Point{bbox[2], bbox[3]}, zoom)

	minX, maxX = minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	// Tile rows grow southwards.
	minY, maxY = minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return minX, maxX, minY, maxY
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) ([4]float64, error) {
	var b [4]float64
	if _, err := fmt.Sscanf(s, "%g,%g,%g,%g", &b[0], &b[1], &b[2], &b[3]); err != nil {
		return b, fmt.Errorf("invalid bbox %q: want minLon,minLat,maxLon,maxLat", s)
	}
	if b[0] >= b[2] || b[1] >= b[3] {
		return b, fmt.Errorf("invalid bbox %q: min must be below max", s)
	}
	return b, nil
}
