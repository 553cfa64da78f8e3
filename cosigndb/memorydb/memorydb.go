// Package memorydb is an in-memory cosigndb.Database, adapted from
// go-ethereum's ethdb/memorydb: a mutex-guarded map. Used for tests and for
// embedders that don't need persistence across restarts.
package memorydb

import (
	"sort"
	"sync"

	"github.com/cosign-network/cosigning/cosigndb"
)

type Database struct {
	lock sync.RWMutex
	db   map[string][]byte
}

func New() *Database {
	return &Database{db: make(map[string][]byte)}
}

func (d *Database) Has(key []byte) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	_, ok := d.db[string(key)]
	return ok, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if v, ok := d.db[string(key)]; ok {
		cpy := make([]byte, len(v))
		copy(cpy, v)
		return cpy, nil
	}
	return nil, cosigndb.ErrNotFound
}

func (d *Database) Put(key, value []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	cpy := make([]byte, len(value))
	copy(cpy, value)
	d.db[string(key)] = cpy
	return nil
}

func (d *Database) Delete(key []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	delete(d.db, string(key))
	return nil
}

func (d *Database) Close() error { return nil }

func (d *Database) NewBatch() cosigndb.Batch {
	return &batch{db: d}
}

func (d *Database) NewIterator(prefix []byte) cosigndb.Iterator {
	d.lock.RLock()
	defer d.lock.RUnlock()

	keys := make([]string, 0, len(d.db))
	for k := range d.db {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = d.db[k]
	}
	return &iterator{keys: keys, values: values, idx: -1}
}

type iterator struct {
	keys   []string
	values [][]byte
	idx    int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *iterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *iterator) Value() []byte { return it.values[it.idx] }
func (it *iterator) Release()      {}

type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

type batch struct {
	db      *Database
	writes  []keyvalue
	size    int
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte(nil), key...), append([]byte(nil), value...), false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte(nil), key...), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	for _, kv := range b.writes {
		if kv.delete {
			delete(b.db.db, string(kv.key))
			continue
		}
		b.db.db[string(kv.key)] = kv.value
	}
	return nil
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
