// Package leveldb is the production cosigndb.Database backend, wrapping
// github.com/syndtr/goleveldb the same way go-ethereum's own ethdb/leveldb
// wraps it for chain data.
package leveldb

import (
	"github.com/cosign-network/cosigning/cosigndb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type Database struct {
	db *leveldb.DB
}

// New opens (or creates) a LevelDB database at path.
func New(path string) (*Database, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Has(key []byte) (bool, error) {
	return d.db.Has(key, nil)
}

func (d *Database) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, cosigndb.ErrNotFound
	}
	return v, err
}

func (d *Database) Put(key, value []byte) error {
	return d.db.Put(key, value, nil)
}

func (d *Database) Delete(key []byte) error {
	return d.db.Delete(key, nil)
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) NewBatch() cosigndb.Batch {
	return &batch{db: d.db, b: new(leveldb.Batch)}
}

func (d *Database) NewIterator(prefix []byte) cosigndb.Iterator {
	return &iterator{it: d.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

type iterator struct {
	it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
	}
}

func (it *iterator) Next() bool    { return it.it.Next() }
func (it *iterator) Key() []byte   { return it.it.Key() }
func (it *iterator) Value() []byte { return it.it.Value() }
func (it *iterator) Release()      { it.it.Release() }

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Write() error {
	return b.db.Write(b.b, nil)
}

func (b *batch) Reset() {
	b.b.Reset()
}
