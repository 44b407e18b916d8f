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

package ordis

import (
	"ordis.org/pkg/keys"
	"ordis.org/pkg/record"
)

// tableMetaLocked loads and decodes the metadata record for name. The
// caller holds the lock on the metadata key, in either mode.
func (c *Conn) tableMetaLocked(name []byte) (TableMeta, error) {
	rec, ok, err := c.getRecord(keys.TableMeta(name))
	if err != nil || !ok {
		return TableMeta{}, err
	}
	payload, err := rec.Expect(record.TagTable)
	if err != nil {
		return TableMeta{}, err
	}
	m, ok := decodeTableMeta(payload)
	if !ok {
		return TableMeta{}, &InvalidMetaError{Name: name}
	}
	return m, nil
}

// TableGetMeta returns the table metadata for name. An unused name
// has the zero metadata.
func (c *Conn) TableGetMeta(name []byte) (TableMeta, error) {
	metaKey := keys.TableMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.RLock()
	defer e.RUnlock()
	return c.tableMetaLocked(name)
}

// TableLen returns the number of entries in the table under name.
func (c *Conn) TableLen(name []byte) (uint64, error) {
	m, err := c.TableGetMeta(name)
	return m.Len, err
}

// TableGet returns the value stored under (name, key), or nil if
// absent.
func (c *Conn) TableGet(name, key []byte) ([]byte, error) {
	rec, ok, err := c.getRecord(keys.Table(name, key))
	if err != nil || !ok {
		return nil, err
	}
	return rec.Expect(record.TagTable)
}

// TableUpdateFunc decides the new state of one table entry. It
// receives the current metadata and the current value (with present
// reporting whether the entry exists) and returns the value to store;
// keep=false removes the entry instead.
type TableUpdateFunc func(meta TableMeta, old []byte, present bool) (val []byte, keep bool)

// TableUpdate applies f to the entry under (name, key) and commits
// the resulting entry and metadata changes as one atomic batch. It
// returns the previous value, or nil if the entry was absent.
func (c *Conn) TableUpdate(name, key []byte, f TableUpdateFunc) ([]byte, error) {
	metaKey := keys.TableMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.WLock()
	defer e.WUnlock()

	meta, err := c.tableMetaLocked(name)
	if err != nil {
		return nil, err
	}
	itemKey := keys.Table(name, key)
	var old []byte
	rec, present, err := c.getRecord(itemKey)
	if err != nil {
		return nil, err
	}
	if present {
		old, err = rec.Expect(record.TagTable)
		if err != nil {
			return nil, err
		}
	}

	val, keep := f(meta, old, present)
	switch {
	case !present && keep:
		meta.Len++
	case present && !keep:
		meta.Len--
	}

	b := c.items.BeginBatch()
	if keep {
		b.Set(itemKey, record.New(record.TagTable, val).Encode())
	} else if present {
		b.Delete(itemKey)
	}
	if meta.Len > 0 {
		b.Set(metaKey, record.New(record.TagTable, meta.encode()).Encode())
	} else {
		b.Delete(metaKey)
	}
	if err := c.items.CommitBatch(b); err != nil {
		return nil, err
	}
	return old, nil
}

// TableInsert stores val under (name, key), creating the table if
// needed, and returns the previous value, or nil if the entry was
// absent.
func (c *Conn) TableInsert(name, key, val []byte) ([]byte, error) {
	return c.TableUpdate(name, key, func(TableMeta, []byte, bool) ([]byte, bool) {
		return val, true
	})
}

// TableRemove removes the entry under (name, key) and returns its
// value, or nil if the entry was absent.
func (c *Conn) TableRemove(name, key []byte) ([]byte, error) {
	return c.TableUpdate(name, key, func(TableMeta, []byte, bool) ([]byte, bool) {
		return nil, false
	})
}
