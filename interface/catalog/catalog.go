package catalog

import (
	"context"
	"time"

	"github.com/airbusgeo/geodata-ingester/common"
	"github.com/airbusgeo/geodata-ingester/service/geometry"
)

// Filter is a key:value criterion of a catalogue search
type Filter struct {
	Key, Value string
}

// Query of products intersecting an AOI during [Start, End]
type Query struct {
	AOI        geometry.Ring
	Filters    []Filter
	Start, End time.Time
}

// ProductsProvider searches a catalogue for products
type ProductsProvider interface {
	// SearchProducts returns at most maxProducts products matching the query
	SearchProducts(ctx context.Context, q Query, maxProducts int) ([]common.Product, error)
}
