package geometry

import (
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	geomwkt "github.com/go-spatial/geom/encoding/wkt"
	"github.com/paulsmith/gogeos/geos"
)

// BBox is a geographic bounding box in degrees (EPSG:4326)
type BBox struct {
	West, South, East, North float64
}

// CrossesAntimeridian returns true if the box spans the 180th meridian (west > east)
func (b BBox) CrossesAntimeridian() bool {
	return b.West > b.East
}

// Validate checks the bounds are finite, south <= north and within the geographic domain.
// West > east is accepted: the box crosses the antimeridian.
func (b BBox) Validate() error {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bbox: non finite bound")
		}
	}
	if b.South > b.North {
		return fmt.Errorf("bbox: south (%v) > north (%v)", b.South, b.North)
	}
	if b.South < -90 || b.North > 90 || b.West < -180 || b.West > 180 || b.East < -180 || b.East > 180 {
		return fmt.Errorf("bbox: out of range %v", b)
	}
	return nil
}

// Ring is a closed linear ring of (lon, lat) points
type Ring [][2]float64

// RingFromBBox returns the 5-point closed ring NE, SE, SW, NW, NE of the bounding box
func RingFromBBox(b BBox) Ring {
	ne := [2]float64{b.East, b.North}
	return Ring{
		ne,
		{b.East, b.South},
		{b.West, b.South},
		{b.West, b.North},
		ne,
	}
}

// RingFromGeometry extracts the exterior ring of a polygon (or of the first polygon of a multipolygon)
// The ring is closed if needed.
func RingFromGeometry(g geom.Geometry) (Ring, error) {
	var rings [][][2]float64
	switch g := g.(type) {
	case geom.Polygon:
		rings = g.LinearRings()
	case geom.MultiPolygon:
		if len(g) == 0 {
			return nil, fmt.Errorf("RingFromGeometry: empty multipolygon")
		}
		rings = g.Polygons()[0]
	default:
		return nil, fmt.Errorf("RingFromGeometry: unsupported geometry %T", g)
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, fmt.Errorf("RingFromGeometry: empty polygon")
	}
	r := make(Ring, len(rings[0]))
	copy(r, rings[0])
	if r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r, nil
}

// Closed returns true if the first and last points are equal
func (r Ring) Closed() bool {
	return len(r) > 0 && r[0] == r[len(r)-1]
}

// Validate checks that the ring describes a polygon
func (r Ring) Validate() error {
	if len(r) < 4 {
		return fmt.Errorf("ring: at least 4 points are expected, got %d", len(r))
	}
	if !r.Closed() {
		return fmt.Errorf("ring: first and last points must be equal")
	}
	for _, p := range r {
		if p[0] < -180 || p[0] > 180 || p[1] < -90 || p[1] > 90 {
			return fmt.Errorf("ring: point %v out of range", p)
		}
	}
	g, err := r.Geos()
	if err != nil {
		return fmt.Errorf("ring: %w", err)
	}
	area, err := g.Area()
	if err != nil {
		return fmt.Errorf("ring.Area: %w", err)
	}
	if area == 0 {
		return fmt.Errorf("ring: degenerated polygon")
	}
	return nil
}

// BBox returns the bounding box of the ring
func (r Ring) BBox() BBox {
	points := make([][2]float64, len(r))
	copy(points, r)
	e := geom.NewExtent(points...)
	return BBox{West: e.MinX(), South: e.MinY(), East: e.MaxX(), North: e.MaxY()}
}

// Polygon returns the ring as a single-ring polygon
func (r Ring) Polygon() geom.Polygon {
	return geom.Polygon{[][2]float64(r)}
}

// Geos returns the ring as a GEOS polygon
func (r Ring) Geos() (*geos.Geometry, error) {
	coords := make([]geos.Coord, len(r))
	for i, p := range r {
		coords[i] = geos.NewCoord(p[0], p[1])
	}
	g, err := geos.NewPolygon(coords)
	if err != nil {
		return nil, fmt.Errorf("Geos.NewPolygon: %w", err)
	}
	return g, nil
}

// WKT returns the WKT representation of the polygon
func (r Ring) WKT() (string, error) {
	g, err := r.Geos()
	if err != nil {
		return "", fmt.Errorf("WKT.%w", err)
	}
	wkt, err := g.ToWKT()
	if err != nil {
		return "", fmt.Errorf("WKT.ToWKT: %w", err)
	}
	return wkt, nil
}

// RingFromWKT parses a polygon WKT
func RingFromWKT(wkt string) (Ring, error) {
	g, err := geomwkt.DecodeString(wkt)
	if err != nil {
		return nil, fmt.Errorf("RingFromWKT.DecodeString: %w", err)
	}
	return RingFromGeometry(g)
}
