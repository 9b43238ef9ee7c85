package geometry

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/paulsmith/gogeos/geos"
)

func checkGeomEquality(wkt1, wkt2 string) error {
	geom1, err := geos.FromWKT(wkt1)
	if err != nil {
		return err
	}
	geom2, err := geos.FromWKT(wkt2)
	if err != nil {
		return err
	}
	if equal, err := geom1.Equals(geom2); err != nil {
		return err
	} else if !equal {
		return fmt.Errorf("Not equal")
	}
	return nil
}

func TestRingFromBBox(t *testing.T) {
	bboxes := []BBox{
		{West: 36, South: 0, East: 37, North: 1},
		{West: -0.5103751, South: 51.2867602, East: 0.3340155, North: 51.6918741},
		{West: -180, South: -90, East: 180, North: 90},
	}
	for _, b := range bboxes {
		r := RingFromBBox(b)
		if len(r) != 5 {
			t.Fatalf("expected 5 points, got %d", len(r))
		}
		if !r.Closed() {
			t.Errorf("ring %v is not closed", r)
		}
		if r[0] != [2]float64{b.East, b.North} || r[2] != [2]float64{b.West, b.South} {
			t.Errorf("unexpected corners %v for %v", r, b)
		}
		if got := r.BBox(); got != b {
			t.Errorf("expected bbox %v, got %v", b, got)
		}
		if err := r.Validate(); err != nil {
			t.Error(err)
		}
	}
}

func TestRingWKT(t *testing.T) {
	r := RingFromBBox(BBox{West: 129, South: -12, East: 130, North: -11})
	wkt, err := r.WKT()
	if err != nil {
		t.Fatal(err)
	}
	if err := checkGeomEquality(wkt, "POLYGON ((129 -11, 130 -11, 130 -12, 129 -12, 129 -11))"); err != nil {
		t.Errorf("%s: %v", wkt, err)
	}
	back, err := RingFromWKT(wkt)
	if err != nil {
		t.Fatal(err)
	}
	if back.BBox() != r.BBox() {
		t.Errorf("expected %v, got %v", r.BBox(), back.BBox())
	}
}

func TestRingValidate(t *testing.T) {
	invalids := map[string]Ring{
		"too short":  {{0, 0}, {1, 1}, {0, 0}},
		"open":       {{0, 0}, {1, 0}, {1, 1}, {0, 1}},
		"degenerate": {{0, 0}, {1, 0}, {2, 0}, {0, 0}},
		"range":      {{0, 0}, {200, 0}, {200, 1}, {0, 0}},
	}
	for name, r := range invalids {
		if err := r.Validate(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestBBoxValidate(t *testing.T) {
	fiji := BBox{West: 177.0, South: -21.0, East: -178.2, North: -12.4}
	if err := fiji.Validate(); err != nil || !fiji.CrossesAntimeridian() {
		t.Errorf("a box crossing the antimeridian must be valid: %v", err)
	}
	if err := RingFromBBox(fiji).Validate(); err != nil {
		t.Error(err)
	}
	if err := (BBox{West: 181, South: 0, East: 0, North: 1}).Validate(); err == nil {
		t.Error("west > 180 must fail")
	}
	if err := (BBox{West: 0, South: 2, East: 1, North: 1}).Validate(); err == nil {
		t.Error("south > north must fail")
	}
	if b := (BBox{West: 0, South: 0, East: 1, North: 1}); b.Validate() != nil || b.CrossesAntimeridian() {
		t.Error("expected a valid box")
	}
}

func TestPolygonGeoJSON(t *testing.T) {
	r := RingFromBBox(BBox{West: 10, South: 10, East: 20, North: 20})
	bytes, err := json.Marshal(geojson.Geometry{Geometry: r.Polygon()})
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"type":"Polygon","coordinates":[[[20,20],[20,10],[10,10],[10,20],[20,20]]]}`
	if string(bytes) != expected {
		t.Errorf("Expect %s found %s", expected, string(bytes))
	}
}
