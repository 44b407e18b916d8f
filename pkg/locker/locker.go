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

// Package locker provides a table of reference-counted reader/writer
// locks keyed by byte strings. Containers are locked by their
// metadata key, so operations on different names never contend on a
// single process-wide mutex.
package locker

import (
	"sync"
	"sync/atomic"
)

// Table maps keys to refcounted RW locks. The zero value is ready to
// use.
type Table struct {
	m sync.Map // string -> *Entry
}

// Entry is a handle on one key's lock, valid until Release.
//
// The refcount reaching zero is terminal: a drained entry is never
// handed out again, only removed. That rules out the race where one
// caller removes an entry just as another acquires it.
type Entry struct {
	refs atomic.Int64
	mu   sync.RWMutex

	key string
	t   *Table
}

// incIfLive increments the refcount unless it has already drained to
// zero.
func (e *Entry) incIfLive() bool {
	for {
		r := e.refs.Load()
		if r == 0 {
			return false
		}
		if e.refs.CompareAndSwap(r, r+1) {
			return true
		}
	}
}

// Lock finds or creates the entry for key and acquires a reference to
// it. The caller must call Release exactly once when done, after
// unlocking.
func (t *Table) Lock(key []byte) *Entry {
	k := string(key)
	for {
		// Shared lookup first; the insert path only runs on a miss.
		if v, ok := t.m.Load(k); ok {
			e := v.(*Entry)
			if e.incIfLive() {
				return e
			}
			// Drained entry still in the table; help remove it.
			t.m.CompareAndDelete(k, e)
			continue
		}
		e := &Entry{key: k, t: t}
		e.refs.Store(1)
		v, loaded := t.m.LoadOrStore(k, e)
		if !loaded {
			return e
		}
		cur := v.(*Entry)
		if cur.incIfLive() {
			return cur
		}
		t.m.CompareAndDelete(k, cur)
	}
}

// Release drops the reference. The entry leaves the table once its
// refcount drains to zero.
func (e *Entry) Release() {
	if e.refs.Add(-1) == 0 {
		e.t.m.CompareAndDelete(e.key, e)
	}
}

// RLock acquires the shared lock.
func (e *Entry) RLock() { e.mu.RLock() }

// RUnlock releases the shared lock.
func (e *Entry) RUnlock() { e.mu.RUnlock() }

// WLock acquires the exclusive lock.
func (e *Entry) WLock() { e.mu.Lock() }

// WUnlock releases the exclusive lock.
func (e *Entry) WUnlock() { e.mu.Unlock() }

// size reports the number of live entries, for tests.
func (t *Table) size() int {
	n := 0
	t.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
