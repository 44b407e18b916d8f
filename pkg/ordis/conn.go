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

// Package ordis layers Redis-style containers (blobs, double-ended
// lists, and keyed tables) on top of a sorted.KeyValue store.
//
// Every container is addressed by a byte-string name. All physical
// keys for a name share one prefix (see ordis.org/pkg/keys), every
// stored value is wrapped in a tagged record envelope (see
// ordis.org/pkg/record), and each multi-key mutation is committed as
// one atomic batch under a per-container lock, so concurrent callers
// observe container operations as single steps.
package ordis

import (
	"errors"
	"path/filepath"

	"go4.org/jsonconfig"
	"ordis.org/pkg/keys"
	"ordis.org/pkg/locker"
	"ordis.org/pkg/record"
	"ordis.org/pkg/sorted"
	"ordis.org/pkg/sorted/leveldb"
)

// Conn is a connection to one store. Its methods are safe for
// concurrent use.
//
// The items tree is the source of truth. The ttl tree is a secondary
// index of expiry bookkeeping mirroring removals of item keys; the
// two trees are not updated atomically with respect to each other, so
// a crash may leave orphaned ttl entries behind. Those are hints, not
// authoritative state, and harmless.
type Conn struct {
	items sorted.KeyValue
	ttl   sorted.KeyValue
	locks locker.Table
}

// Open opens (or creates) a store rooted at dir, with leveldb-backed
// items and ttl trees.
func Open(dir string) (*Conn, error) {
	items, err := leveldb.NewStorage(filepath.Join(dir, "items"))
	if err != nil {
		return nil, err
	}
	ttl, err := leveldb.NewStorage(filepath.Join(dir, "ttl"))
	if err != nil {
		items.Close()
		return nil, err
	}
	return New(items, ttl), nil
}

// OpenConfig opens a store whose trees are described by jsonconfig
// objects under the "items" and "ttl" keys, each in the format
// accepted by sorted.NewKeyValue. A missing "ttl" object defaults to
// an in-memory tree.
func OpenConfig(cfg jsonconfig.Obj) (*Conn, error) {
	itemsCfg := cfg.RequiredObject("items")
	ttlCfg := cfg.OptionalObject("ttl")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	items, err := sorted.NewKeyValue(itemsCfg)
	if err != nil {
		return nil, err
	}
	var ttl sorted.KeyValue
	if len(ttlCfg) == 0 {
		ttl = sorted.NewMemoryKeyValue()
	} else {
		ttl, err = sorted.NewKeyValue(ttlCfg)
		if err != nil {
			items.Close()
			return nil, err
		}
	}
	return New(items, ttl), nil
}

// New returns a Conn over the given items and ttl trees. Ownership of
// both passes to the Conn; Close closes them.
func New(items, ttl sorted.KeyValue) *Conn {
	return &Conn{items: items, ttl: ttl}
}

// Close closes both trees.
func (c *Conn) Close() error {
	err := c.items.Close()
	if err2 := c.ttl.Close(); err == nil {
		err = err2
	}
	return err
}

// Flusher is an optional sorted.KeyValue interface for stores that
// buffer writes.
type Flusher interface {
	Flush() error
}

// Flush flushes both trees, where their implementations support it.
func (c *Conn) Flush() error {
	for _, kv := range []sorted.KeyValue{c.items, c.ttl} {
		if f, ok := kv.(Flusher); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clear removes everything from both trees.
func (c *Conn) Clear() error {
	for _, kv := range []sorted.KeyValue{c.items, c.ttl} {
		if err := wipe(kv); err != nil {
			return err
		}
	}
	return nil
}

func wipe(kv sorted.KeyValue) error {
	if w, ok := kv.(sorted.Wiper); ok {
		return w.Wipe()
	}
	ks, err := scanKeys(kv, nil, nil)
	if err != nil {
		return err
	}
	b := kv.BeginBatch()
	for _, k := range ks {
		b.Delete(k)
	}
	return kv.CommitBatch(b)
}

// getRecord reads and decodes the record at key, reporting presence.
func (c *Conn) getRecord(key []byte) (record.Record, bool, error) {
	v, err := c.items.Get(key)
	if errors.Is(err, sorted.ErrNotFound) {
		return record.Record{}, false, nil
	}
	if err != nil {
		return record.Record{}, false, err
	}
	rec, err := record.Decode(v)
	if err != nil {
		return record.Record{}, false, err
	}
	return rec, true, nil
}

// scanKeys collects every key in [start, end).
func scanKeys(kv sorted.KeyValue, start, end []byte) ([][]byte, error) {
	var out [][]byte
	it := kv.Find(start, end)
	for it.Next() {
		out = append(out, append([]byte(nil), it.Key()...))
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem removes whatever container lives under name, whichever
// kind it is. Removing an absent name is not an error.
func (c *Conn) RemoveItem(name []byte) error {
	bare := keys.Bare(name)
	e := c.locks.Lock(bare)
	defer e.Release()
	e.WLock()
	defer e.WUnlock()
	return c.removeItemLocked(name)
}

// removeItemLocked clears every physical key under name's prefix.
// Callers hold the writer lock on the bare key.
//
// A blob stores its record directly at the bare key; lists and tables
// store nothing there, so the shared metadata key is probed to learn
// whether item keys exist. The removal batch is applied to the items
// tree and then to the ttl tree; the two applies are not atomic with
// each other, by design.
func (c *Conn) removeItemLocked(name []byte) error {
	bare := keys.Bare(name)
	metaKey := keys.ListMeta(name)

	_, haveMeta, err := c.getRecord(metaKey)
	if err != nil {
		return err
	}
	if haveMeta {
		// List or table: clear the whole prefix, metadata included.
		ks, err := scanKeys(c.items, bare, keys.PrefixEnd(bare))
		if err != nil {
			return err
		}
		ib := c.items.BeginBatch()
		tb := c.ttl.BeginBatch()
		for _, k := range ks {
			ib.Delete(k)
			tb.Delete(k)
		}
		if err := c.items.CommitBatch(ib); err != nil {
			return err
		}
		return c.ttl.CommitBatch(tb)
	}

	_, haveBare, err := c.getRecord(bare)
	if err != nil {
		return err
	}
	if !haveBare {
		return nil
	}
	if err := c.items.Delete(bare); err != nil {
		return err
	}
	return c.ttl.Delete(bare)
}
