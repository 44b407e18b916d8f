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

// BlobGet returns the blob stored under name, or nil if no blob is
// stored there.
func (c *Conn) BlobGet(name []byte) ([]byte, error) {
	rec, ok, err := c.getRecord(keys.Blob(name))
	if err != nil || !ok {
		return nil, err
	}
	return rec.Expect(record.TagBlob)
}

// BlobInsert stores val as the blob under name, displacing whatever
// container previously held the name. It returns the previous blob
// value, or nil if the name previously held nothing or a different
// container kind.
func (c *Conn) BlobInsert(name, val []byte) ([]byte, error) {
	bare := keys.Bare(name)
	e := c.locks.Lock(bare)
	defer e.Release()
	e.WLock()
	defer e.WUnlock()

	var old []byte
	rec, ok, err := c.getRecord(bare)
	if err != nil {
		return nil, err
	}
	if ok && rec.Tag() == record.TagBlob {
		old = rec.Data()
	}
	// A list or table under this name gives way to the blob.
	if err := c.removeItemLocked(name); err != nil {
		return nil, err
	}
	if err := c.items.Set(bare, record.New(record.TagBlob, val).Encode()); err != nil {
		return nil, err
	}
	return old, nil
}

// BlobRemove removes the blob under name and returns its value, or
// nil if the name is unused. It returns a *record.TypeError if the
// name holds a list or table.
func (c *Conn) BlobRemove(name []byte) ([]byte, error) {
	bare := keys.Bare(name)
	e := c.locks.Lock(bare)
	defer e.Release()
	e.WLock()
	defer e.WUnlock()

	rec, ok, err := c.getRecord(bare)
	if err != nil {
		return nil, err
	}
	if !ok {
		// No blob; a list or table under the name is a type mismatch.
		meta, haveMeta, err := c.getRecord(keys.ListMeta(name))
		if err != nil {
			return nil, err
		}
		if haveMeta {
			return nil, &record.TypeError{Expected: record.TagBlob, Found: meta.Tag()}
		}
		return nil, nil
	}
	old, err := rec.Expect(record.TagBlob)
	if err != nil {
		return nil, err
	}
	if err := c.items.Delete(bare); err != nil {
		return nil, err
	}
	if err := c.ttl.Delete(bare); err != nil {
		return nil, err
	}
	return old, nil
}
