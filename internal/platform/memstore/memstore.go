// Package memstore is the in-memory backend used when STORE_DRIVER=memory.
// It wraps go-memdb so repositories get the same atomic, isolated
// transactions they would get from PostgreSQL.
package memstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
)

type contextKey string

const txnKey contextKey = "memstore_txn"

// IDIndex is the unique primary index every table must declare.
const IDIndex = "id"

// Store is a transactional in-memory database shared by all repositories.
type Store struct {
	db  *memdb.MemDB
	seq atomic.Int64
}

// New builds a store from the tables each domain package contributes.
func New(tables ...*memdb.TableSchema) (*Store, error) {
	schema := &memdb.DBSchema{Tables: make(map[string]*memdb.TableSchema, len(tables))}
	for _, t := range tables {
		if _, dup := schema.Tables[t.Name]; dup {
			return nil, fmt.Errorf("memstore: table %q registered twice", t.Name)
		}
		schema.Tables[t.Name] = t
	}
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("memstore: %w", err)
	}
	return &Store{db: db}, nil
}

// Table declares a table keyed by the string field Key, plus any non-unique
// string-field secondary indexes.
func Table(name string, secondary ...string) *memdb.TableSchema {
	t := &memdb.TableSchema{
		Name: name,
		Indexes: map[string]*memdb.IndexSchema{
			IDIndex: {Name: IDIndex, Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Key"}},
		},
	}
	for _, field := range secondary {
		t.Indexes[field] = &memdb.IndexSchema{
			Name:         field,
			AllowMissing: true,
			Indexer:      &memdb.StringFieldIndex{Field: field},
		}
	}
	return t
}

// NextSeq returns a process-wide increasing number for surrogate keys.
func (s *Store) NextSeq() int64 {
	return s.seq.Add(1)
}

// Ping always succeeds; it lets the store back the /health/db endpoint.
func (s *Store) Ping(context.Context) error { return nil }

func txnFrom(ctx context.Context) *memdb.Txn {
	txn, _ := ctx.Value(txnKey).(*memdb.Txn)
	return txn
}

// WithinTx runs fn inside one write transaction. Every Read and Write made
// with the context passed to fn joins it; the whole unit commits only when fn
// returns nil. Write transactions are serialized by memdb.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txnFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(context.WithValue(ctx, txnKey, txn)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Read returns the ambient transaction, or a fresh snapshot.
func (s *Store) Read(ctx context.Context) *memdb.Txn {
	if txn := txnFrom(ctx); txn != nil {
		return txn
	}
	return s.db.Txn(false)
}

// Write runs fn against the ambient transaction, or a new write transaction
// committed when fn succeeds.
func (s *Store) Write(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if txn := txnFrom(ctx); txn != nil {
		return fn(txn)
	}
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Collect drains an iterator into typed values.
func Collect[T any](it memdb.ResultIterator) []T {
	var out []T
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(T))
	}
	return out
}
