/*
Copyright 2026 The Ordis Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package leveldb provides an implementation of sorted.KeyValue on top
// of a single mutable database file on disk using
// github.com/syndtr/goleveldb.
package leveldb

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"go4.org/jsonconfig"
	"ordis.org/pkg/sorted"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ sorted.Wiper = (*kvis)(nil)

func init() {
	sorted.RegisterKeyValue("leveldb", newKeyValueFromJSONConfig)
}

// NewStorage is a convenience that calls newKeyValueFromJSONConfig
// with file as the leveldb storage file.
func NewStorage(file string) (sorted.KeyValue, error) {
	return newKeyValueFromJSONConfig(jsonconfig.Obj{"file": file})
}

// newKeyValueFromJSONConfig returns a KeyValue implementation on top
// of a github.com/syndtr/goleveldb/leveldb file.
func newKeyValueFromJSONConfig(cfg jsonconfig.Obj) (sorted.KeyValue, error) {
	file := cfg.RequiredString("file")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := &opt.Options{
		// The default is 10, 10 means 0.812% error rate
		// (1/2^(bits/1.44)) or 1/123th disk check rate.
		Filter: filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(file, opts)
	if err != nil {
		return nil, err
	}
	is := &kvis{
		db:       db,
		path:     file,
		opts:     opts,
		readOpts: &opt.ReadOptions{},
		// On machine crash the caller re-derives state anyway, and
		// fsyncs impose a great performance penalty.
		writeOpts: &opt.WriteOptions{Sync: false},
	}
	return is, nil
}

type kvis struct {
	path      string
	db        *leveldb.DB
	opts      *opt.Options
	readOpts  *opt.ReadOptions
	writeOpts *opt.WriteOptions
	casMu     sync.Mutex // serializes CompareAndSwap read-modify-write
}

func (is *kvis) Get(key []byte) ([]byte, error) {
	val, err := is.db.Get(key, is.readOpts)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, sorted.ErrNotFound
		}
		return nil, err
	}
	if val == nil {
		return nil, sorted.ErrNotFound
	}
	return val, nil
}

func (is *kvis) Set(key, value []byte) error {
	if err := sorted.CheckSizes(key, value); err != nil {
		return err
	}
	return is.db.Put(key, value, is.writeOpts)
}

func (is *kvis) Delete(key []byte) error {
	return is.db.Delete(key, is.writeOpts)
}

func (is *kvis) CompareAndSwap(key, old, new []byte) error {
	if err := sorted.CheckSizes(key, new); err != nil {
		return err
	}
	is.casMu.Lock()
	defer is.casMu.Unlock()
	cur, err := is.db.Get(key, is.readOpts)
	switch {
	case err == leveldb.ErrNotFound:
		cur = nil
	case err != nil:
		return err
	}
	if (cur == nil) != (old == nil) || !bytes.Equal(cur, old) {
		return sorted.ErrCASMismatch
	}
	if new == nil {
		if cur == nil {
			return nil
		}
		return is.db.Delete(key, is.writeOpts)
	}
	return is.db.Put(key, new, is.writeOpts)
}

func (is *kvis) Find(start, end []byte) sorted.Iterator {
	return &iter{
		it: is.db.NewIterator(
			&util.Range{Start: start, Limit: end},
			is.readOpts,
		),
	}
}

func (is *kvis) Wipe() error {
	// Close the already open DB.
	if err := is.db.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(is.path); err != nil {
		return err
	}
	db, err := leveldb.OpenFile(is.path, is.opts)
	if err != nil {
		return fmt.Errorf("error creating %s: %v", is.path, err)
	}
	is.db = db
	return nil
}

func (is *kvis) BeginBatch() sorted.BatchMutation {
	return &lvbatch{batch: new(leveldb.Batch)}
}

type lvbatch struct {
	errMu sync.Mutex
	err   error // set if one of the mutations had too large a key or value; sticky

	batch *leveldb.Batch
}

func (lvb *lvbatch) Set(key, value []byte) {
	lvb.errMu.Lock()
	defer lvb.errMu.Unlock()
	if lvb.err != nil {
		return
	}
	if err := sorted.CheckSizes(key, value); err != nil {
		if err == sorted.ErrKeyTooLarge {
			lvb.err = fmt.Errorf("%v: %x", err, key)
		} else {
			lvb.err = fmt.Errorf("%v: key %x", err, key)
		}
		return
	}
	lvb.batch.Put(key, value)
}

func (lvb *lvbatch) Delete(key []byte) {
	lvb.batch.Delete(key)
}

func (is *kvis) CommitBatch(bm sorted.BatchMutation) error {
	b, ok := bm.(*lvbatch)
	if !ok {
		return errors.New("invalid batch type")
	}
	b.errMu.Lock()
	defer b.errMu.Unlock()
	if b.err != nil {
		return b.err
	}
	return is.db.Write(b.batch, is.writeOpts)
}

func (is *kvis) Close() error {
	return is.db.Close()
}

type iter struct {
	it     iterator.Iterator
	closed bool
}

func (it *iter) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	err := it.it.Error()
	it.it.Release()
	return err
}

func (it *iter) Key() []byte   { return it.it.Key() }
func (it *iter) Value() []byte { return it.it.Value() }

func (it *iter) Next() bool {
	if it.closed {
		return false
	}
	if err := it.it.Error(); err != nil {
		return false
	}
	return it.it.Next()
}
