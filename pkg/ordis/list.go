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
	"errors"

	"ordis.org/pkg/keys"
	"ordis.org/pkg/record"
	"ordis.org/pkg/sorted"
)

// listMetaLocked loads and decodes the metadata record for name. The
// caller holds the lock on the metadata key, in either mode.
func (c *Conn) listMetaLocked(name []byte) (ListMeta, error) {
	rec, ok, err := c.getRecord(keys.ListMeta(name))
	if err != nil || !ok {
		return ListMeta{}, err
	}
	payload, err := rec.Expect(record.TagList)
	if err != nil {
		return ListMeta{}, err
	}
	m, ok := decodeListMeta(payload)
	if !ok {
		return ListMeta{}, &InvalidMetaError{Name: name}
	}
	return m, nil
}

// ListGetMeta returns the list metadata for name. An unused name has
// the zero metadata.
func (c *Conn) ListGetMeta(name []byte) (ListMeta, error) {
	metaKey := keys.ListMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.RLock()
	defer e.RUnlock()
	return c.listMetaLocked(name)
}

// ListLen returns the number of items in the list under name.
func (c *Conn) ListLen(name []byte) (uint64, error) {
	m, err := c.ListGetMeta(name)
	return m.Len, err
}

// ListGet returns the item at logical index ix, or nil when ix is out
// of range.
func (c *Conn) ListGet(name []byte, ix uint64) ([]byte, error) {
	metaKey := keys.ListMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.RLock()
	defer e.RUnlock()

	m, err := c.listMetaLocked(name)
	if err != nil {
		return nil, err
	}
	phys, ok := m.physical(ix)
	if !ok {
		return nil, nil
	}
	rec, ok, err := c.getRecord(keys.List(name, phys))
	if err != nil || !ok {
		return nil, err
	}
	return rec.Expect(record.TagList)
}

// ListPushFront prepends val to the list under name, creating the
// list if needed.
func (c *Conn) ListPushFront(name, val []byte) error {
	return c.listPush(name, val, (*ListMeta).pushFront)
}

// ListPushBack appends val to the list under name, creating the list
// if needed.
func (c *Conn) ListPushBack(name, val []byte) error {
	return c.listPush(name, val, (*ListMeta).pushBack)
}

func (c *Conn) listPush(name, val []byte, move func(*ListMeta) keys.ListIndex) error {
	metaKey := keys.ListMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.WLock()
	defer e.WUnlock()

	m, err := c.listMetaLocked(name)
	if err != nil {
		return err
	}
	ix := move(&m)

	b := c.items.BeginBatch()
	b.Set(keys.List(name, ix), record.New(record.TagList, val).Encode())
	b.Set(metaKey, record.New(record.TagList, m.encode()).Encode())
	return c.items.CommitBatch(b)
}

// ListPopFront removes and returns the first item of the list under
// name, or nil when the list is empty.
func (c *Conn) ListPopFront(name []byte) ([]byte, error) {
	return c.listPop(name, (*ListMeta).popFront)
}

// ListPopBack removes and returns the last item of the list under
// name, or nil when the list is empty.
func (c *Conn) ListPopBack(name []byte) ([]byte, error) {
	return c.listPop(name, (*ListMeta).popBack)
}

func (c *Conn) listPop(name []byte, move func(*ListMeta) (keys.ListIndex, bool)) ([]byte, error) {
	metaKey := keys.ListMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.WLock()
	defer e.WUnlock()

	m, err := c.listMetaLocked(name)
	if err != nil {
		return nil, err
	}
	ix, ok := move(&m)
	if !ok {
		return nil, nil
	}
	itemKey := keys.List(name, ix)
	rec, ok, err := c.getRecord(itemKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingValueError{Name: name, Ix: ix}
	}
	old, err := rec.Expect(record.TagList)
	if err != nil {
		return nil, err
	}

	b := c.items.BeginBatch()
	b.Delete(itemKey)
	if m.Len > 0 {
		b.Set(metaKey, record.New(record.TagList, m.encode()).Encode())
	} else {
		b.Delete(metaKey)
	}
	if err := c.items.CommitBatch(b); err != nil {
		return nil, err
	}
	return old, nil
}

// ListSet replaces the item at logical index ix with val and returns
// the previous item, or nil (writing nothing) when ix is out of
// range. The replacement is a single-key write made under the reader
// lock, so other ListGet and ListSet calls proceed concurrently while
// pushes and pops wait for it.
func (c *Conn) ListSet(name []byte, ix uint64, val []byte) ([]byte, error) {
	metaKey := keys.ListMeta(name)
	e := c.locks.Lock(metaKey)
	defer e.Release()
	e.RLock()
	defer e.RUnlock()

	m, err := c.listMetaLocked(name)
	if err != nil {
		return nil, err
	}
	phys, ok := m.physical(ix)
	if !ok {
		return nil, nil
	}
	itemKey := keys.List(name, phys)
	newRaw := record.New(record.TagList, val).Encode()
	for {
		var oldRaw, old []byte
		rec, ok, err := c.getRecord(itemKey)
		if err != nil {
			return nil, err
		}
		if ok {
			old, err = rec.Expect(record.TagList)
			if err != nil {
				return nil, err
			}
			oldRaw = rec.Encode()
		}
		err = c.items.CompareAndSwap(itemKey, oldRaw, newRaw)
		if err == nil {
			return old, nil
		}
		if !errors.Is(err, sorted.ErrCASMismatch) {
			return nil, err
		}
		// Lost a race with a concurrent ListSet; reload and retry.
	}
}
