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
	"encoding/binary"

	"ordis.org/pkg/keys"
)

// ListMeta is the decoded list metadata record: the physical index of
// the head item and the number of items. The zero value describes an
// empty list. Physical indices run from Head through Head+Len-1.
type ListMeta struct {
	Head keys.ListIndex
	Len  uint64
}

const listMetaSize = keys.IndexBytes + 8

func (m ListMeta) encode() []byte {
	out := make([]byte, 0, listMetaSize)
	out = append(out, m.Head.Bytes()...)
	return binary.BigEndian.AppendUint64(out, m.Len)
}

func decodeListMeta(in []byte) (ListMeta, bool) {
	if len(in) != listMetaSize {
		return ListMeta{}, false
	}
	head, _ := keys.ListIndexFromBytes(in[:keys.IndexBytes])
	return ListMeta{
		Head: head,
		Len:  binary.BigEndian.Uint64(in[keys.IndexBytes:]),
	}, true
}

// physical maps the logical index u to a physical index, reporting
// false when u is out of range.
func (m ListMeta) physical(u uint64) (keys.ListIndex, bool) {
	if u >= m.Len {
		return keys.ListIndex{}, false
	}
	return m.Head.AddUint(u), true
}

func (m ListMeta) headIx() (keys.ListIndex, bool) {
	if m.Len == 0 {
		return keys.ListIndex{}, false
	}
	return m.Head, true
}

func (m ListMeta) tailIx() (keys.ListIndex, bool) {
	if m.Len == 0 {
		return keys.ListIndex{}, false
	}
	return m.Head.AddUint(m.Len - 1), true
}

func (m *ListMeta) pushFront() keys.ListIndex {
	m.Head = m.Head.Decr()
	m.Len++
	return m.Head
}

func (m *ListMeta) pushBack() keys.ListIndex {
	m.Len++
	return m.Head.AddUint(m.Len - 1)
}

func (m *ListMeta) popFront() (keys.ListIndex, bool) {
	ix, ok := m.headIx()
	if !ok {
		return ix, false
	}
	m.Head = m.Head.Incr()
	m.Len--
	return ix, true
}

func (m *ListMeta) popBack() (keys.ListIndex, bool) {
	ix, ok := m.tailIx()
	if !ok {
		return ix, false
	}
	m.Len--
	return ix, true
}
