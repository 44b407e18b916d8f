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

// Package keys builds the composite store keys for the blob, list and
// table containers.
//
// Every key starts with the escaped container name and a terminator.
// A blob lives directly at that bare key. Lists and tables put their
// metadata record at bare+0x00 and their items under bare+0x01, so a
// scan of the bare prefix returns the metadata followed by every item
// of that name, and nothing else.
package keys

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"ordis.org/pkg/escape"
)

// Kind bytes distinguishing metadata from items under a name's prefix.
const (
	metaByte = 0x00
	itemByte = 0x01
)

// Bare returns escape(name) followed by the terminator. It is the key
// prefix owned by name, and the blob key itself.
func Bare(name []byte) []byte {
	out := make([]byte, 0, len(name)+2)
	out = escape.AppendEscaped(out, name)
	return append(out, escape.Terminator...)
}

// Blob returns the key holding the blob value for name.
func Blob(name []byte) []byte {
	return Bare(name)
}

// ListMeta returns the key of the list metadata record for name.
func ListMeta(name []byte) []byte {
	return append(Bare(name), metaByte)
}

// List returns the key of the list item at physical index ix.
func List(name []byte, ix ListIndex) []byte {
	out := make([]byte, 0, len(name)+3+IndexBytes)
	out = escape.AppendEscaped(out, name)
	out = append(out, escape.Terminator...)
	out = append(out, itemByte)
	var buf [IndexBytes]byte
	ix.encode(buf[:])
	return append(out, buf[:]...)
}

// TableMeta returns the key of the table metadata record for name.
// It coincides with ListMeta; the record tag stored there is what
// distinguishes the two container kinds.
func TableMeta(name []byte) []byte {
	return append(Bare(name), metaByte)
}

// Table returns the key of the table entry for (name, key).
func Table(name, key []byte) []byte {
	out := make([]byte, 0, len(name)+len(key)+5)
	out = escape.AppendEscaped(out, name)
	out = append(out, escape.Terminator...)
	out = append(out, itemByte)
	out = escape.AppendEscaped(out, key)
	return append(out, escape.Terminator...)
}

// PrefixEnd returns the exclusive upper bound for a scan of all keys
// beginning with prefix: the shortest key greater than every such key,
// or nil if none exists (prefix is all 0xFF).
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// IndexBytes is the encoded size of a ListIndex.
const IndexBytes = 16

// ListIndex is a signed 128-bit physical list index. Indices become
// negative under repeated front pushes, so the encoding flips the sign
// bit (ix XOR minimum) to keep lexicographic key order equal to
// numeric order.
type ListIndex struct {
	hi int64
	lo uint64
}

// NewListIndex returns the ListIndex equal to v.
func NewListIndex(v int64) ListIndex {
	ix := ListIndex{lo: uint64(v)}
	if v < 0 {
		ix.hi = -1
	}
	return ix
}

// MinListIndex and MaxListIndex bound the index range.
var (
	MinListIndex = ListIndex{hi: -1 << 63, lo: 0}
	MaxListIndex = ListIndex{hi: 1<<63 - 1, lo: ^uint64(0)}
)

// Incr returns ix+1.
func (ix ListIndex) Incr() ListIndex {
	lo := ix.lo + 1
	hi := ix.hi
	if lo == 0 {
		hi++
	}
	return ListIndex{hi: hi, lo: lo}
}

// Decr returns ix-1.
func (ix ListIndex) Decr() ListIndex {
	lo := ix.lo - 1
	hi := ix.hi
	if ix.lo == 0 {
		hi--
	}
	return ListIndex{hi: hi, lo: lo}
}

// AddUint returns ix+n.
func (ix ListIndex) AddUint(n uint64) ListIndex {
	lo := ix.lo + n
	hi := ix.hi
	if lo < ix.lo {
		hi++
	}
	return ListIndex{hi: hi, lo: lo}
}

// Cmp returns -1, 0 or 1 comparing ix to other numerically.
func (ix ListIndex) Cmp(other ListIndex) int {
	if ix.hi != other.hi {
		if ix.hi < other.hi {
			return -1
		}
		return 1
	}
	if ix.lo != other.lo {
		if ix.lo < other.lo {
			return -1
		}
		return 1
	}
	return 0
}

// Int64 returns ix as an int64, for indices known to fit.
func (ix ListIndex) Int64() int64 {
	return int64(ix.lo)
}

func (ix ListIndex) String() string {
	if (ix.hi == 0 && ix.lo < 1<<63) || (ix.hi == -1 && ix.lo >= 1<<63) {
		return strconv.FormatInt(int64(ix.lo), 10)
	}
	return fmt.Sprintf("0x%016x%016x", uint64(ix.hi), ix.lo)
}

func (ix ListIndex) encode(out []byte) {
	// Flipping the sign bit maps the signed range onto the unsigned
	// range in order.
	binary.BigEndian.PutUint64(out[:8], uint64(ix.hi)^(1<<63))
	binary.BigEndian.PutUint64(out[8:], ix.lo)
}

// EncodeListIndex returns the 16-byte big-endian order-preserving
// encoding of ix.
func EncodeListIndex(ix ListIndex) []byte {
	out := make([]byte, IndexBytes)
	ix.encode(out)
	return out
}

// DecodeListIndex inverts EncodeListIndex. It reports false if the
// input is not exactly IndexBytes long.
func DecodeListIndex(in []byte) (ListIndex, bool) {
	if len(in) != IndexBytes {
		return ListIndex{}, false
	}
	return ListIndex{
		hi: int64(binary.BigEndian.Uint64(in[:8]) ^ (1 << 63)),
		lo: binary.BigEndian.Uint64(in[8:]),
	}, true
}

// Bytes returns ix as 16 big-endian two's-complement bytes. This is
// the representation used inside list metadata payloads; unlike the
// key encoding it does not flip the sign bit.
func (ix ListIndex) Bytes() []byte {
	out := make([]byte, IndexBytes)
	binary.BigEndian.PutUint64(out[:8], uint64(ix.hi))
	binary.BigEndian.PutUint64(out[8:], ix.lo)
	return out
}

// ListIndexFromBytes inverts Bytes. It reports false if the input is
// not exactly IndexBytes long.
func ListIndexFromBytes(in []byte) (ListIndex, bool) {
	if len(in) != IndexBytes {
		return ListIndex{}, false
	}
	return ListIndex{
		hi: int64(binary.BigEndian.Uint64(in[:8])),
		lo: binary.BigEndian.Uint64(in[8:]),
	}, true
}
