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

// Package kvtest tests sorted.KeyValue implementations.
package kvtest

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"ordis.org/pkg/sorted"
	"ordis.org/pkg/test"
)

func TestSorted(t *testing.T, kv sorted.KeyValue) {
	defer test.TLog(t)()
	if !isEmpty(t, kv) {
		t.Fatal("kv for test is expected to be initially empty")
	}
	set := func(k, v string) {
		if err := kv.Set([]byte(k), []byte(v)); err != nil {
			t.Fatalf("Error setting %q to %q: %v", k, v, err)
		}
	}
	set("foo", "bar")
	if isEmpty(t, kv) {
		t.Fatalf("iterator reports the kv is empty after adding foo=bar; iterator must be broken")
	}
	if v, err := kv.Get([]byte("foo")); err != nil || string(v) != "bar" {
		t.Errorf("get(foo) = %q, %v; want bar", v, err)
	}
	if v, err := kv.Get([]byte("NOT_EXIST")); err != sorted.ErrNotFound {
		t.Errorf("get(NOT_EXIST) = %q, %v; want error sorted.ErrNotFound", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := kv.Delete([]byte("foo")); err != nil {
			t.Errorf("Delete(foo) (on loop %d/2) returned error %v", i+1, err)
		}
	}
	set("a", "av")
	set("b", "bv")
	set("c", "cv")
	testEnumerate(t, kv, "", "", "av", "bv", "cv")
	testEnumerate(t, kv, "a", "", "av", "bv", "cv")
	testEnumerate(t, kv, "b", "", "bv", "cv")
	testEnumerate(t, kv, "a", "c", "av", "bv")
	testEnumerate(t, kv, "a", "b", "av")
	testEnumerate(t, kv, "a", "a")
	testEnumerate(t, kv, "d", "")
	testEnumerate(t, kv, "d", "e")

	// Binary keys, including NULs, must collate bytewise.
	set("\x00x", "\x00xv")
	testEnumerate(t, kv, "\x00", "\x01", "\x00xv")
	if err := kv.Delete([]byte("\x00x")); err != nil {
		t.Errorf("Delete(nul key): %v", err)
	}

	// Verify that the value isn't being used instead of the key in the
	// range comparison.
	set("y", "x:foo")
	testEnumerate(t, kv, "x:", "x~")

	testBatch(t, kv)
	testCAS(t, kv)
	testInsertLarge(t, kv)
	testInsertTooLarge(t, kv)
}

func testBatch(t *testing.T, kv sorted.KeyValue) {
	b := kv.BeginBatch()
	b.Set([]byte("batch1"), []byte("v1"))
	b.Set([]byte("batch2"), []byte("v2"))
	b.Delete([]byte("y"))
	if err := kv.CommitBatch(b); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if v, err := kv.Get([]byte("batch1")); err != nil || string(v) != "v1" {
		t.Errorf("get(batch1) = %q, %v; want v1", v, err)
	}
	if v, err := kv.Get([]byte("batch2")); err != nil || string(v) != "v2" {
		t.Errorf("get(batch2) = %q, %v; want v2", v, err)
	}
	if _, err := kv.Get([]byte("y")); err != sorted.ErrNotFound {
		t.Errorf("get(y) after batch delete: err = %v; want ErrNotFound", err)
	}
	for _, k := range []string{"batch1", "batch2"} {
		if err := kv.Delete([]byte(k)); err != nil {
			t.Errorf("Delete(%q): %v", k, err)
		}
	}
}

func testCAS(t *testing.T, kv sorted.KeyValue) {
	key := []byte("caskey")
	// Create from absence.
	if err := kv.CompareAndSwap(key, nil, []byte("one")); err != nil {
		t.Fatalf("CAS(nil, one): %v", err)
	}
	// Wrong old value must not apply.
	if err := kv.CompareAndSwap(key, []byte("two"), []byte("three")); !errors.Is(err, sorted.ErrCASMismatch) {
		t.Fatalf("CAS(two, three) error = %v; want ErrCASMismatch", err)
	}
	if v, _ := kv.Get(key); string(v) != "one" {
		t.Fatalf("value after failed CAS = %q; want one", v)
	}
	// Replacement.
	if err := kv.CompareAndSwap(key, []byte("one"), []byte("two")); err != nil {
		t.Fatalf("CAS(one, two): %v", err)
	}
	// nil old on a present key must fail.
	if err := kv.CompareAndSwap(key, nil, []byte("x")); !errors.Is(err, sorted.ErrCASMismatch) {
		t.Fatalf("CAS(nil, x) on present key error = %v; want ErrCASMismatch", err)
	}
	// Deletion via nil new.
	if err := kv.CompareAndSwap(key, []byte("two"), nil); err != nil {
		t.Fatalf("CAS(two, nil): %v", err)
	}
	if _, err := kv.Get(key); err != sorted.ErrNotFound {
		t.Fatalf("get after CAS delete: err = %v; want ErrNotFound", err)
	}
}

func testInsertLarge(t *testing.T, kv sorted.KeyValue) {
	largeKey := make([]byte, sorted.MaxKeySize-1)
	for k := range largeKey {
		largeKey[k] = 'A'
	}
	largeKey[sorted.MaxKeySize-2] = 'B'
	largeValue := make([]byte, sorted.MaxValueSize-1)
	for k := range largeValue {
		largeValue[k] = 'A'
	}
	largeValue[sorted.MaxValueSize-2] = 'B'

	// insert with large key
	if err := kv.Set(largeKey, []byte("whatever")); err != nil {
		t.Fatalf("Insertion of large key failed: %v", err)
	}
	// and verify we can get it back, i.e. that the key hasn't been truncated.
	it := kv.Find(largeKey, nil)
	if !it.Next() || !bytes.Equal(it.Key(), largeKey) || string(it.Value()) != "whatever" {
		it.Close()
		t.Fatalf("Find(largeKey) = %q, %q; want %q, %q", it.Key(), it.Value(), largeKey, "whatever")
	}
	it.Close()

	// insert with large value
	if err := kv.Set([]byte("whatever"), largeValue); err != nil {
		t.Fatalf("Insertion of large value failed: %v", err)
	}
	if v, err := kv.Get([]byte("whatever")); err != nil || !bytes.Equal(v, largeValue) {
		t.Fatalf("get(whatever) = len %d, %v; want the large value back", len(v), err)
	}

	// insert with large key and large value
	if err := kv.Set(largeKey, largeValue); err != nil {
		t.Fatalf("Insertion of large key and value failed: %v", err)
	}
	it = kv.Find(largeKey, nil)
	defer it.Close()
	if !it.Next() || !bytes.Equal(it.Key(), largeKey) || !bytes.Equal(it.Value(), largeValue) {
		t.Fatalf("Find(largeKey) got wrong key/value back")
	}
}

func testInsertTooLarge(t *testing.T, kv sorted.KeyValue) {
	largeKey := make([]byte, sorted.MaxKeySize+1)
	largeValue := make([]byte, sorted.MaxValueSize+1)
	if err := kv.Set(largeKey, []byte("whatever")); err != sorted.ErrKeyTooLarge {
		t.Fatalf("Insertion of too large a key should have failed, but err was %v", err)
	}
	if err := kv.Set([]byte("whatever"), largeValue); err != sorted.ErrValueTooLarge {
		t.Fatalf("Insertion of too large a value should have failed, but err was %v", err)
	}
}

func testEnumerate(t *testing.T, kv sorted.KeyValue, start, end string, want ...string) {
	var got []string
	var startb, endb []byte
	if start != "" {
		startb = []byte(start)
	}
	if end != "" {
		endb = []byte(end)
	}
	it := kv.Find(startb, endb)
	for it.Next() {
		key, val := it.Key(), it.Value()
		if string(key)+"v" != string(val) {
			t.Errorf("iterator returned unexpected pair for test: %q, %q", key, val)
		}
		got = append(got, string(val))
	}
	err := it.Close()
	if err != nil {
		t.Errorf("for enumerate of (%q, %q), Close error: %v", start, end, err)
	}
	if !reflect.DeepEqual(got, want) && !(len(got) == 0 && len(want) == 0) {
		t.Errorf("for enumerate of (%q, %q), got: %q; want %q", start, end, got, want)
	}
}

func isEmpty(t *testing.T, kv sorted.KeyValue) bool {
	it := kv.Find(nil, nil)
	hasRow := it.Next()
	if err := it.Close(); err != nil {
		t.Fatalf("Error closing iterator while testing for emptiness: %v", err)
	}
	return !hasRow
}
