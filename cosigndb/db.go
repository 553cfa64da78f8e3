// Package cosigndb implements the durable-store contract spec.md §5/§6
// requires: an ordered key-value map with atomic multi-key commits,
// reads inside a transaction that see its own pending writes, and
// single-consumer FIFO channels with peek and try-recv. Transactions read
// the live database; they do not take point-in-time snapshots. The interface shape is adapted from
// github.com/ethereum/go-ethereum/ethdb's Database, generalized with a
// Txn type because a bare Get/Put pair cannot express the "one commit per
// task iteration" requirement every task in this repo depends on.
package cosigndb

import "errors"

// ErrNotFound is returned by Get/Database lookups that miss, mirroring
// ethdb's leveldb.ErrNotFound sentinel.
var ErrNotFound = errors.New("cosigndb: not found")

// Database is the minimal ordered key-value store every backend must
// implement. Keys are opaque byte strings; ordering is lexicographic over
// the raw bytes, matching LevelDB's native order.
type Database interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// NewIterator returns keys with the given prefix in ascending order.
	NewIterator(prefix []byte) Iterator
	Close() error
}

// Iterator walks a Database's keys in ascending lexicographic order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Batch is a write-only buffer that commits as a single atomic unit,
// mirroring ethdb.Batch.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Write() error
	Reset()
}

// Batcher is implemented by any Database that can produce a Batch.
type Batcher interface {
	NewBatch() Batch
}
