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

// Package sorted provides a sorted, byte-keyed KeyValue interface and
// a constructor registry for its implementations.
package sorted

import (
	"errors"
	"fmt"

	"go4.org/jsonconfig"
)

var (
	ErrNotFound = errors.New("sorted: key not found")

	// ErrCASMismatch is returned by CompareAndSwap when the current
	// value does not match the expected old value.
	ErrCASMismatch = errors.New("sorted: compare-and-swap mismatch")

	ErrKeyTooLarge   = errors.New("sorted: key too large")
	ErrValueTooLarge = errors.New("sorted: value too large")
)

const (
	MaxKeySize   = 767
	MaxValueSize = 63000
)

// CheckSizes returns an error if the key or value exceeds the
// respective maximum size.
func CheckSizes(key, value []byte) error {
	if len(key) > MaxKeySize {
		return ErrKeyTooLarge
	}
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}
	return nil
}

// KeyValue is a sorted, enumerable byte-keyed store supporting point
// mutations, atomic batches, and single-key compare-and-swap.
type KeyValue interface {
	// Get gets the value for the given key. It returns ErrNotFound if
	// the store does not contain the key.
	Get(key []byte) ([]byte, error)

	Set(key, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// CompareAndSwap atomically replaces the value under key with new,
	// but only while the current value equals old. A nil old demands
	// the key be absent; a nil new deletes it. On any other current
	// state it returns ErrCASMismatch.
	CompareAndSwap(key, old, new []byte) error

	BeginBatch() BatchMutation

	// CommitBatch applies the batch's mutations all-or-nothing: no
	// reader observes a state between the first and the last of them.
	CommitBatch(b BatchMutation) error

	// Find returns an iterator positioned before the first key/value
	// pair whose key is 'greater than or equal to' start. Iteration
	// stops before end; a nil end means no upper bound. There may be
	// no such pair, in which case the iterator will return false on
	// Next.
	//
	// Any error encountered is implicitly returned via the iterator.
	// An error-iterator yields no pairs and its Close returns that
	// error.
	Find(start, end []byte) Iterator

	// Close is a polite way for the client to shut down the storage.
	// Implementations should never lose data after a Set, Delete, or
	// CommitBatch, though.
	Close() error
}

// Wiper is an optional KeyValue interface that removes everything.
type Wiper interface {
	Wipe() error
}

// Iterator iterates over a KeyValue's key/value pairs in key order.
//
// An iterator must be closed after use, but it is not necessary to
// read it to exhaustion. An iterator is not necessarily
// goroutine-safe, but it is safe to use multiple iterators
// concurrently, each in a dedicated goroutine.
type Iterator interface {
	// Next moves the iterator to the next key/value pair.
	// It returns false when the iterator is exhausted.
	Next() bool

	// Key returns the key of the current pair. It is only valid after
	// a call to Next returned true, and the slice may be overwritten
	// by the following Next.
	Key() []byte

	// Value returns the value of the current pair, under the same
	// rules as Key.
	Value() []byte

	// Close closes the iterator and returns any accumulated error.
	// Exhausting the pairs is not an error. It is valid to call Close
	// multiple times.
	Close() error
}

// BatchMutation accumulates Sets and Deletes for a CommitBatch.
type BatchMutation interface {
	Set(key, value []byte)
	Delete(key []byte)
}

// Mutation is one entry of a generic batch.
type Mutation interface {
	Key() []byte
	Value() []byte
	IsDelete() bool
}

type mutation struct {
	key    []byte
	value  []byte // used if !delete
	delete bool
}

func (m mutation) Key() []byte    { return m.key }
func (m mutation) Value() []byte  { return m.value }
func (m mutation) IsDelete() bool { return m.delete }

// NewBatchMutation returns a generic in-memory BatchMutation usable by
// implementations without a native batch type.
func NewBatchMutation() BatchMutation {
	return &batch{}
}

type batch struct {
	m []Mutation
}

func (b *batch) Mutations() []Mutation {
	return b.m
}

func (b *batch) Set(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.m = append(b.m, mutation{key: k, value: v})
}

func (b *batch) Delete(key []byte) {
	k := append([]byte(nil), key...)
	b.m = append(b.m, mutation{key: k, delete: true})
}

var ctors = make(map[string]func(jsonconfig.Obj) (KeyValue, error))

// RegisterKeyValue registers a constructor for the named implementation
// type.
func RegisterKeyValue(typ string, fn func(jsonconfig.Obj) (KeyValue, error)) {
	if typ == "" || fn == nil {
		panic("zero type or func")
	}
	if _, dup := ctors[typ]; dup {
		panic("duplicate registration of type " + typ)
	}
	ctors[typ] = fn
}

// NewKeyValue returns a KeyValue as described by the config's "type"
// field.
func NewKeyValue(cfg jsonconfig.Obj) (KeyValue, error) {
	var s KeyValue
	var err error
	typ := cfg.RequiredString("type")
	ctor, ok := ctors[typ]
	if typ != "" && !ok {
		return nil, fmt.Errorf("invalid sorted.KeyValue type %q", typ)
	}
	if ok {
		s, err = ctor(cfg)
		if err != nil {
			return nil, err
		}
	}
	return s, cfg.Validate()
}
