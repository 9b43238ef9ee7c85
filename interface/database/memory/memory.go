// Package memory implements an in-process provenance store, used for tests and dry runs
package memory

import (
	"context"
	"sync"

	"github.com/airbusgeo/geodata-ingester/common"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
)

type collection struct {
	keyed map[string]common.Document
	bulk  []common.Document
}

// Backend implements ProvenanceBackend
type Backend struct {
	mu          sync.Mutex
	collections map[db.Collection]*collection
}

// New creates an empty store
func New() *Backend {
	return &Backend{collections: map[db.Collection]*collection{}}
}

func (b *Backend) get(c db.Collection) *collection {
	coll, ok := b.collections[c]
	if !ok {
		coll = &collection{keyed: map[string]common.Document{}}
		b.collections[c] = coll
	}
	return coll
}

func clone(doc common.Document) common.Document {
	c := make(common.Document, len(doc))
	for k, v := range doc {
		c[k] = v
	}
	return c
}

// Exists implements ProvenanceBackend
func (b *Backend) Exists(ctx context.Context, c db.Collection, key db.Key) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.get(c).keyed[key.String()]
	return ok, nil
}

// InsertOne implements ProvenanceBackend
func (b *Backend) InsertOne(ctx context.Context, c db.Collection, key db.Key, doc common.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	coll := b.get(c)
	if _, ok := coll.keyed[key.String()]; ok {
		return db.ErrAlreadyExists{Type: string(c), ID: key.String()}
	}
	coll.keyed[key.String()] = clone(doc)
	return nil
}

// InsertMany implements ProvenanceBackend
func (b *Backend) InsertMany(ctx context.Context, c db.Collection, docs []common.Document) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	coll := b.get(c)
	for _, doc := range docs {
		coll.bulk = append(coll.bulk, clone(doc))
	}
	return len(docs), nil
}

// Upsert implements ProvenanceBackend
func (b *Backend) Upsert(ctx context.Context, c db.Collection, key db.Key, doc common.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.get(c).keyed[key.String()] = clone(doc)
	return nil
}

// Find implements ProvenanceBackend
func (b *Backend) Find(ctx context.Context, c db.Collection, key db.Key) (common.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.get(c).keyed[key.String()]
	if !ok {
		return nil, db.ErrNotFound{Type: string(c), ID: key.String()}
	}
	return clone(doc), nil
}

// Count implements ProvenanceBackend
func (b *Backend) Count(ctx context.Context, c db.Collection) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	coll := b.get(c)
	return len(coll.keyed) + len(coll.bulk), nil
}

// Close implements ProvenanceBackend
func (b *Backend) Close() error {
	return nil
}
