package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/airbusgeo/geodata-ingester/common"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
)

// Runs against a live server, e.g. INGESTER_TEST_MONGO=mongodb://localhost:27017
func newTestBackend(t *testing.T) *Backend {
	url := os.Getenv("INGESTER_TEST_MONGO")
	if url == "" {
		t.Skip("INGESTER_TEST_MONGO not set")
	}
	b, err := New(context.Background(), url, "ingester_test")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range db.Collections {
		coll, closer := b.collection(c)
		coll.RemoveAll(nil)
		closer()
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestInsertOneUniqueKey(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	key := db.Key{Source: "tropomi", ProductID: "uuid-1"}
	if err := b.InsertOne(ctx, db.SatelliteImagery, key, common.Document{"title": "S5P"}); err != nil {
		t.Fatal(err)
	}
	var exists db.ErrAlreadyExists
	if err := b.InsertOne(ctx, db.SatelliteImagery, key, common.Document{"title": "S5P"}); !errors.As(err, &exists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	doc, err := b.Find(ctx, db.SatelliteImagery, key)
	if err != nil || doc["title"] != "S5P" {
		t.Errorf("unexpected %v (%v)", doc, err)
	}
	if _, ok := doc[keyField]; ok {
		t.Error("the internal key must not be returned")
	}
}

func TestBulkDocumentsAreNotKeyed(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	docs := []common.Document{{"station": "GHCND:USW00094728"}, {"station": "GHCND:USW00094728"}}
	if n, err := b.InsertMany(ctx, db.WeatherData, docs); err != nil || n != 2 {
		t.Fatalf("expected 2 inserted, got %d (%v)", n, err)
	}
	if n, _ := b.Count(ctx, db.WeatherData); n != 2 {
		t.Errorf("expected 2 documents, got %d", n)
	}
	if err := b.Upsert(ctx, db.GeospatialData, db.Key{Source: "landcover"}, common.Document{"v": 1}); err != nil {
		t.Fatal(err)
	}
	if err := b.Upsert(ctx, db.GeospatialData, db.Key{Source: "landcover"}, common.Document{"v": 2}); err != nil {
		t.Fatal(err)
	}
	if n, _ := b.Count(ctx, db.GeospatialData); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}
