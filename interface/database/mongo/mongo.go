// Package mongo implements the provenance store on MongoDB.
// Keyed records carry a "_key" field, protected by a unique sparse index on every collection
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/airbusgeo/geodata-ingester/common"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"
)

const keyField = "_key"

// Backend implements ProvenanceBackend
type Backend struct {
	session  *mgo.Session
	database string
}

// New connects to MongoDB and ensures the unique indexes
// database overrides the database of the url if not empty
func New(ctx context.Context, url, database string) (*Backend, error) {
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("mongo.Dial: %w", err)
	}
	b := &Backend{session: session, database: database}
	for _, c := range db.Collections {
		if err := b.ensureIndex(c); err != nil {
			session.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Backend) ensureIndex(c db.Collection) error {
	session := b.session.Copy()
	defer session.Close()
	err := session.DB(b.database).C(string(c)).EnsureIndex(mgo.Index{
		Key:    []string{keyField},
		Unique: true,
		Sparse: true,
	})
	if err != nil {
		return fmt.Errorf("mongo.EnsureIndex[%s]: %w", c, err)
	}
	return nil
}

// collection returns a fresh session on the collection. The closer must be called
func (b *Backend) collection(c db.Collection) (*mgo.Collection, func()) {
	session := b.session.Copy()
	return session.DB(b.database).C(string(c)), session.Close
}

func withKey(key db.Key, doc common.Document) bson.M {
	m := bson.M{}
	for k, v := range doc {
		m[k] = v
	}
	m[keyField] = key.String()
	return m
}

// Exists implements ProvenanceBackend
func (b *Backend) Exists(ctx context.Context, collection db.Collection, key db.Key) (bool, error) {
	c, closer := b.collection(collection)
	defer closer()
	n, err := c.Find(bson.M{keyField: key.String()}).Count()
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return n > 0, nil
}

// InsertOne implements ProvenanceBackend
func (b *Backend) InsertOne(ctx context.Context, collection db.Collection, key db.Key, doc common.Document) error {
	c, closer := b.collection(collection)
	defer closer()
	if err := c.Insert(withKey(key, doc)); err != nil {
		if mgo.IsDup(err) {
			return db.ErrAlreadyExists{Type: string(collection), ID: key.String()}
		}
		return fmt.Errorf("InsertOne: %w", err)
	}
	return nil
}

// InsertMany implements ProvenanceBackend
func (b *Backend) InsertMany(ctx context.Context, collection db.Collection, docs []common.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	c, closer := b.collection(collection)
	defer closer()
	values := make([]interface{}, len(docs))
	for i, doc := range docs {
		values[i] = bson.M(doc)
	}
	if err := c.Insert(values...); err != nil {
		return 0, fmt.Errorf("InsertMany: %w", err)
	}
	return len(docs), nil
}

// Upsert implements ProvenanceBackend
func (b *Backend) Upsert(ctx context.Context, collection db.Collection, key db.Key, doc common.Document) error {
	c, closer := b.collection(collection)
	defer closer()
	if _, err := c.Upsert(bson.M{keyField: key.String()}, withKey(key, doc)); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// Find implements ProvenanceBackend
func (b *Backend) Find(ctx context.Context, collection db.Collection, key db.Key) (common.Document, error) {
	c, closer := b.collection(collection)
	defer closer()
	var m bson.M
	if err := c.Find(bson.M{keyField: key.String()}).Select(bson.M{"_id": 0, keyField: 0}).One(&m); err != nil {
		if errors.Is(err, mgo.ErrNotFound) {
			return nil, db.ErrNotFound{Type: string(collection), ID: key.String()}
		}
		return nil, fmt.Errorf("Find: %w", err)
	}
	return common.Document(m), nil
}

// Count implements ProvenanceBackend
func (b *Backend) Count(ctx context.Context, collection db.Collection) (int, error) {
	c, closer := b.collection(collection)
	defer closer()
	n, err := c.Count()
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

// Close implements ProvenanceBackend
func (b *Backend) Close() error {
	b.session.Close()
	return nil
}
