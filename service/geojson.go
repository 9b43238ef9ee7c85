package service

import (
	"encoding/json"
	"fmt"

	"github.com/airbusgeo/geodata-ingester/service/geometry"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// CRS84 is the name of the long/lat WGS84 CRS written in the AOI documents
const CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"

type namedCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   geojson.Geometry       `json:"geometry"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	CRS      *namedCRS `json:"crs,omitempty"`
	Features []feature `json:"features"`
}

// MarshalAOI encodes the ring as a FeatureCollection with a single Polygon feature
func MarshalAOI(ring geometry.Ring, properties map[string]interface{}) ([]byte, error) {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	crs := namedCRS{Type: "name"}
	crs.Properties.Name = CRS84
	fc := featureCollection{
		Type: "FeatureCollection",
		CRS:  &crs,
		Features: []feature{{
			Type:       "Feature",
			Properties: properties,
			Geometry:   geojson.Geometry{Geometry: ring.Polygon()},
		}},
	}
	b, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("MarshalAOI: %w", err)
	}
	return b, nil
}

// UnmarshalAOI decodes the exterior ring of the first polygon of a FeatureCollection, a Feature or a Geometry
func UnmarshalAOI(data []byte) (geometry.Ring, error) {
	header := struct {
		Type string `json:"type"`
	}{}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("UnmarshalAOI: %w", err)
	}

	var g geom.Geometry
	switch header.Type {
	case "FeatureCollection":
		var fc featureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("UnmarshalAOI.FeatureCollection: %w", err)
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("UnmarshalAOI: empty FeatureCollection")
		}
		g = fc.Features[0].Geometry.Geometry
	case "Feature":
		var f feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("UnmarshalAOI.Feature: %w", err)
		}
		g = f.Geometry.Geometry
	default:
		var err error
		if g, err = UnmarshalGeometry(data); err != nil {
			return nil, fmt.Errorf("UnmarshalAOI.%w", err)
		}
	}
	ring, err := geometry.RingFromGeometry(g)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalAOI.%w", err)
	}
	return ring, nil
}

// UnmarshalGeometry, merging featureCollections and geometryCollections into a multipolygon
func UnmarshalGeometry(data []byte) (_ geom.Geometry, err error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return g.Geometry, fmt.Errorf("UnmarshalGeometry: %w", err)
	}
	switch geo := g.Geometry.(type) {
	case geom.Collection:
		var mp geom.MultiPolygon
		if err := mergeMultiPolygons(geo, &mp); err != nil {
			return nil, err
		}
		return mp, nil
	default:
		return g.Geometry, nil
	}
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) error {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			if err := mergeMultiPolygons(g, mp); err != nil {
				return err
			}
		}
	}
	return nil
}
