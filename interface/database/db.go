package db

import (
	"context"
	"fmt"

	"github.com/airbusgeo/geodata-ingester/common"
)

// Collection of the provenance store
type Collection string

const (
	SatelliteImagery Collection = "satellite_imagery"
	GeospatialData   Collection = "geospatial_data"
	WeatherData      Collection = "weather_data"
	GroundTruthData  Collection = "ground_truth_data"
	GeoInfo          Collection = "geo_info"
)

// Collections lists all the collections of the store
var Collections = []Collection{SatelliteImagery, GeospatialData, WeatherData, GroundTruthData, GeoInfo}

// Key identifies a record: a product of a source, or the source itself if ProductID is empty
type Key struct {
	Source, ProductID string
}

func (k Key) String() string {
	if k.ProductID == "" {
		return k.Source
	}
	return k.Source + ":" + k.ProductID
}

type ErrAlreadyExists struct {
	Type, ID string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Type, e.ID)
}

type ErrNotFound struct {
	Type, ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

// ProvenanceBackend persists the provenance records and the bulk documents
type ProvenanceBackend interface {
	// Exists returns true if a record with the key exists in the collection
	Exists(ctx context.Context, collection Collection, key Key) (bool, error)
	// InsertOne inserts a keyed record. Returns ErrAlreadyExists if the key is already recorded
	InsertOne(ctx context.Context, collection Collection, key Key, doc common.Document) error
	// InsertMany inserts documents without key, as they are. Returns the number of inserted documents
	InsertMany(ctx context.Context, collection Collection, docs []common.Document) (int, error)
	// Upsert inserts or replaces the record with the given key
	Upsert(ctx context.Context, collection Collection, key Key, doc common.Document) error
	// Find returns the record with the given key. May return ErrNotFound
	Find(ctx context.Context, collection Collection, key Key) (common.Document, error)
	// Count returns the number of documents of the collection
	Count(ctx context.Context, collection Collection) (int, error)
	// Close releases the connections
	Close() error
}
