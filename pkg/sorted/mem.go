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

package sorted

import (
	"bytes"
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go4.org/jsonconfig"
)

// NewMemoryKeyValue returns a KeyValue implementation that's backed
// only by memory. It's mostly useful for tests and development.
func NewMemoryKeyValue() KeyValue {
	return &memKeys{db: memdb.New(comparer.DefaultComparer, 0)}
}

// memKeys is a naive in-memory implementation of KeyValue for test &
// development purposes only.
type memKeys struct {
	mu sync.Mutex // guards db mutations, so batches apply atomically
	db *memdb.DB
}

func (mk *memKeys) Get(key []byte) ([]byte, error) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	v, err := mk.db.Get(key)
	if err == memdb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v...), nil
}

func (mk *memKeys) Set(key, value []byte) error {
	if err := CheckSizes(key, value); err != nil {
		return err
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	return mk.db.Put(key, value)
}

func (mk *memKeys) Delete(key []byte) error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	err := mk.db.Delete(key)
	if err == memdb.ErrNotFound {
		return nil
	}
	return err
}

func (mk *memKeys) CompareAndSwap(key, old, new []byte) error {
	if err := CheckSizes(key, new); err != nil {
		return err
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	cur, err := mk.db.Get(key)
	switch {
	case err == memdb.ErrNotFound:
		cur = nil
	case err != nil:
		return err
	}
	if (cur == nil) != (old == nil) || !bytes.Equal(cur, old) {
		return ErrCASMismatch
	}
	if new == nil {
		if cur == nil {
			return nil
		}
		return mk.db.Delete(key)
	}
	return mk.db.Put(key, new)
}

func (mk *memKeys) BeginBatch() BatchMutation {
	return &batch{}
}

func (mk *memKeys) CommitBatch(bm BatchMutation) error {
	b, ok := bm.(*batch)
	if !ok {
		return errors.New("invalid batch type; not an instance returned by BeginBatch")
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	for _, m := range b.Mutations() {
		if m.IsDelete() {
			if err := mk.db.Delete(m.Key()); err != nil && err != memdb.ErrNotFound {
				return err
			}
		} else {
			if err := CheckSizes(m.Key(), m.Value()); err != nil {
				return err
			}
			if err := mk.db.Put(m.Key(), m.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (mk *memKeys) Find(start, end []byte) Iterator {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	r := &util.Range{Start: start, Limit: end}
	return &memIter{lit: mk.db.NewIterator(r)}
}

func (mk *memKeys) Wipe() error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.db.Reset()
	return nil
}

func (mk *memKeys) Close() error { return nil }

// memIter adapts the memdb iterator, which reports errors through a
// separate Error method, to the sorted.Iterator contract.
type memIter struct {
	lit iterator.Iterator
}

func (t *memIter) Next() bool {
	if t.lit == nil {
		return false
	}
	return t.lit.Next()
}

func (t *memIter) Key() []byte   { return t.lit.Key() }
func (t *memIter) Value() []byte { return t.lit.Value() }

func (t *memIter) Close() error {
	if t.lit == nil {
		return nil
	}
	err := t.lit.Error()
	t.lit.Release()
	t.lit = nil
	return err
}

func init() {
	RegisterKeyValue("memory", func(cfg jsonconfig.Obj) (KeyValue, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewMemoryKeyValue(), nil
	})
}
