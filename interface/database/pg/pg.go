package pg

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/airbusgeo/geodata-ingester/common"
	db "github.com/airbusgeo/geodata-ingester/interface/database"
	"github.com/lib/pq"
)

//go:embed db.sql
var schema string

// pgInterface allows to use either a sql.DB or a sql.Tx
type pgInterface interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BackendTx is a Backend running in a transaction
type BackendTx struct {
	*sql.Tx
	Backend
}

// BackendDB implements ProvenanceBackend
type BackendDB struct {
	*sql.DB
	Backend
}

// Backend implements the queries of ProvenanceBackend
type Backend struct {
	pgInterface
}

/* http://www.postgresql.org/docs/9.3/static/errcodes-appendix.html */
const (
	noError           = "00000"
	connectionFailure = "08006"
	uniqueViolation   = "23505"

	notPqError = "X"
)

func pqErrorCode(err error) pq.ErrorCode {
	if err == nil {
		return noError
	}
	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		return pqerr.Code
	}
	return notPqError
}

// StartTransaction starts a new transaction
func (bdb BackendDB) StartTransaction(ctx context.Context) (BackendTx, error) {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return BackendTx{}, err
	}
	return BackendTx{tx, Backend{pgInterface: tx}}, nil
}

// Rollback overloads sql.Tx.Rollback to be idempotent
func (btx BackendTx) Rollback() error {
	err := btx.Tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// New creates a new backend using Postgres and creates the schema if needed
func New(ctx context.Context, dbConnection string) (*BackendDB, error) {
	pgdb, err := sql.Open("postgres", dbConnection)
	if err != nil {
		return nil, fmt.Errorf("sql.open: %w", err)
	}
	if _, err := pgdb.ExecContext(ctx, schema); err != nil {
		pgdb.Close()
		return nil, fmt.Errorf("pg.New.schema: %w", err)
	}
	return &BackendDB{pgdb, Backend{pgInterface: pgdb}}, nil
}

// Close implements ProvenanceBackend
func (bdb BackendDB) Close() error {
	return bdb.DB.Close()
}

// Exists implements ProvenanceBackend
func (b Backend) Exists(ctx context.Context, collection db.Collection, key db.Key) (bool, error) {
	var exists bool
	err := b.QueryRowContext(ctx,
		"select exists(select 1 from provenance where collection = $1 and record_key = $2)",
		collection, key.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("Exists.QueryRow: %w", err)
	}
	return exists, nil
}

// InsertOne implements ProvenanceBackend
func (b Backend) InsertOne(ctx context.Context, collection db.Collection, key db.Key, doc common.Document) error {
	_, err := b.ExecContext(ctx,
		"insert into provenance(collection, record_key, document) values($1, $2, $3)",
		collection, key.String(), doc)
	switch pqErrorCode(err) {
	case noError:
		return nil
	case uniqueViolation:
		return db.ErrAlreadyExists{Type: string(collection), ID: key.String()}
	default:
		return fmt.Errorf("InsertOne.exec: %w", err)
	}
}

// Upsert implements ProvenanceBackend
func (b Backend) Upsert(ctx context.Context, collection db.Collection, key db.Key, doc common.Document) error {
	_, err := b.ExecContext(ctx,
		"insert into provenance(collection, record_key, document) values($1, $2, $3)"+
			" on conflict (collection, record_key) do update set document = excluded.document, recorded_at = now()",
		collection, key.String(), doc)
	if err != nil {
		return fmt.Errorf("Upsert.exec: %w", err)
	}
	return nil
}

// Find implements ProvenanceBackend
func (b Backend) Find(ctx context.Context, collection db.Collection, key db.Key) (common.Document, error) {
	var doc common.Document
	err := b.QueryRowContext(ctx,
		"select document from provenance where collection = $1 and record_key = $2",
		collection, key.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound{Type: string(collection), ID: key.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("Find.QueryRow: %w", err)
	}
	return doc, nil
}

// Count implements ProvenanceBackend
func (b Backend) Count(ctx context.Context, collection db.Collection) (int, error) {
	var n int
	if err := b.QueryRowContext(ctx, "select count(*) from provenance where collection = $1", collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count.QueryRow: %w", err)
	}
	return n, nil
}

// InsertMany implements ProvenanceBackend. Documents are inserted in a single transaction
func (bdb BackendDB) InsertMany(ctx context.Context, collection db.Collection, docs []common.Document) (n int, err error) {
	if len(docs) == 0 {
		return 0, nil
	}
	tx, err := bdb.StartTransaction(ctx)
	if err != nil {
		return 0, fmt.Errorf("InsertMany.StartTransaction: %w", err)
	}
	defer func() {
		if e := tx.Rollback(); err == nil {
			err = e
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "insert into provenance(collection, document) values($1, $2)")
	if err != nil {
		return 0, fmt.Errorf("InsertMany.Prepare: %w", err)
	}
	defer stmt.Close()
	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, collection, doc); err != nil {
			return 0, fmt.Errorf("InsertMany.exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("InsertMany.Commit: %w", err)
	}
	return len(docs), nil
}
