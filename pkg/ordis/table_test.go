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

package ordis_test

import (
	"bytes"
	"errors"
	"testing"
	"testing/quick"

	"ordis.org/pkg/keys"
	"ordis.org/pkg/ordis"
	"ordis.org/pkg/record"
	"ordis.org/pkg/sorted"
)

func tableMetaExists(t *testing.T, kv sorted.KeyValue, name []byte) bool {
	t.Helper()
	_, err := kv.Get(keys.TableMeta(name))
	if err == nil {
		return true
	}
	if errors.Is(err, sorted.ErrNotFound) {
		return false
	}
	t.Fatalf("get meta: %v", err)
	return false
}

func TestTableLifecycle(t *testing.T) {
	c, items, _ := testConn(t)
	name := []byte("T")
	k1, k2 := []byte("k1"), []byte("k2")

	if old, err := c.TableInsert(name, k1, []byte("v1")); err != nil || old != nil {
		t.Fatalf("insert k1 = %q, %v; want nil old", old, err)
	}
	if old, err := c.TableInsert(name, k2, []byte("v2")); err != nil || old != nil {
		t.Fatalf("insert k2 = %q, %v; want nil old", old, err)
	}
	if old, err := c.TableInsert(name, k1, []byte("v1'")); err != nil || string(old) != "v1" {
		t.Fatalf("re-insert k1 = %q, %v; want old v1", old, err)
	}
	if n, _ := c.TableLen(name); n != 2 {
		t.Fatalf("TableLen = %d; want 2", n)
	}
	if v, err := c.TableGet(name, k1); err != nil || string(v) != "v1'" {
		t.Errorf("TableGet(k1) = %q, %v; want v1'", v, err)
	}
	if old, err := c.TableRemove(name, k2); err != nil || string(old) != "v2" {
		t.Fatalf("remove k2 = %q, %v; want v2", old, err)
	}
	if n, _ := c.TableLen(name); n != 1 {
		t.Errorf("TableLen after remove = %d; want 1", n)
	}
	if old, err := c.TableRemove(name, k1); err != nil || string(old) != "v1'" {
		t.Fatalf("remove k1 = %q, %v; want v1'", old, err)
	}
	if tableMetaExists(t, items, name) {
		t.Error("metadata record still present after table drained")
	}
	// Removing from an empty table is not an error.
	if old, err := c.TableRemove(name, k1); err != nil || old != nil {
		t.Errorf("remove on empty = %q, %v; want nil", old, err)
	}
}

func TestTableGetAbsent(t *testing.T) {
	c, _, _ := testConn(t)
	if v, err := c.TableGet([]byte("none"), []byte("k")); err != nil || v != nil {
		t.Errorf("TableGet on absent table = %q, %v; want nil", v, err)
	}
}

func TestTableUpdate(t *testing.T) {
	c, _, _ := testConn(t)
	name := []byte("T")
	// Insert via update.
	old, err := c.TableUpdate(name, []byte("k"), func(meta ordis.TableMeta, old []byte, present bool) ([]byte, bool) {
		if present || meta.Len != 0 {
			t.Errorf("update saw present=%v len=%d on fresh table", present, meta.Len)
		}
		return []byte("v"), true
	})
	if err != nil || old != nil {
		t.Fatalf("update-insert = %q, %v", old, err)
	}
	// No-change update keeps the length.
	_, err = c.TableUpdate(name, []byte("k"), func(meta ordis.TableMeta, old []byte, present bool) ([]byte, bool) {
		if !present || string(old) != "v" || meta.Len != 1 {
			t.Errorf("update saw old=%q present=%v len=%d", old, present, meta.Len)
		}
		return old, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := c.TableLen(name); n != 1 {
		t.Errorf("TableLen after no-change update = %d; want 1", n)
	}
	// Remove via update.
	old, err = c.TableUpdate(name, []byte("k"), func(_ ordis.TableMeta, _ []byte, _ bool) ([]byte, bool) {
		return nil, false
	})
	if err != nil || string(old) != "v" {
		t.Fatalf("update-remove = %q, %v; want v", old, err)
	}
	if n, _ := c.TableLen(name); n != 0 {
		t.Errorf("TableLen after update-remove = %d; want 0", n)
	}
}

func TestTableBadType(t *testing.T) {
	c, _, _ := testConn(t)
	name := []byte("N")
	if err := c.ListPushBack(name, []byte("v")); err != nil {
		t.Fatal(err)
	}
	_, err := c.TableLen(name)
	var te *record.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("TableLen on list name: err = %v; want TypeError", err)
	}
	if te.Expected != record.TagTable || te.Found != record.TagList {
		t.Errorf("TypeError = %+v", te)
	}
}

func TestTableInvalidMeta(t *testing.T) {
	c, items, _ := testConn(t)
	name := []byte("T")
	bad := record.New(record.TagTable, []byte("toolongforu64")).Encode()
	if err := items.Set(keys.TableMeta(name), bad); err != nil {
		t.Fatal(err)
	}
	_, err := c.TableLen(name)
	var ime *ordis.InvalidMetaError
	if !errors.As(err, &ime) {
		t.Fatalf("TableLen with corrupt meta: err = %v; want InvalidMetaError", err)
	}
}

// tableOp is one step of the table-vs-map equivalence property.
type tableOp struct {
	Kind byte // 0 insert, 1 remove, 2 get
	Name byte // three names, so tables interleave
	Key  []byte
	Val  []byte
}

func TestTableMatchesMap(t *testing.T) {
	f := func(ops []tableOp) bool {
		c, items, _ := testConn(t)
		model := map[byte]map[string][]byte{}
		for _, op := range ops {
			name := []byte{'t', op.Name % 3}
			m := model[op.Name%3]
			switch op.Kind % 3 {
			case 0:
				old, err := c.TableInsert(name, op.Key, op.Val)
				if err != nil {
					t.Logf("insert: %v", err)
					return false
				}
				if m == nil {
					m = map[string][]byte{}
					model[op.Name%3] = m
				}
				prev, had := m[string(op.Key)]
				if had != (old != nil) || !bytes.Equal(prev, old) {
					return false
				}
				m[string(op.Key)] = op.Val
			case 1:
				old, err := c.TableRemove(name, op.Key)
				if err != nil {
					t.Logf("remove: %v", err)
					return false
				}
				prev, had := m[string(op.Key)]
				if had != (old != nil) || !bytes.Equal(prev, old) {
					return false
				}
				delete(m, string(op.Key))
			case 2:
				got, err := c.TableGet(name, op.Key)
				if err != nil {
					t.Logf("get: %v", err)
					return false
				}
				prev, had := m[string(op.Key)]
				if had != (got != nil) || !bytes.Equal(prev, got) {
					return false
				}
			}
		}
		// Lengths and contents match; metadata exists iff non-empty.
		for nb, m := range model {
			name := []byte{'t', nb}
			n, err := c.TableLen(name)
			if err != nil || n != uint64(len(m)) {
				return false
			}
			for k, want := range m {
				got, err := c.TableGet(name, []byte(k))
				if err != nil || !bytes.Equal(got, want) {
					return false
				}
			}
			if countItems(t, items, name) != len(m) {
				return false
			}
			if tableMetaExists(t, items, name) != (len(m) > 0) {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 50}); err != nil {
		t.Error(err)
	}
}
