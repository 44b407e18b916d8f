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
	"testing"

	"ordis.org/pkg/ordis"
	"ordis.org/pkg/sorted"
)

// FuzzListModel drives a list through an op stream decoded from the
// fuzz input and checks it against an in-memory deque. The oracle is
// behavior, not the on-disk format.
func FuzzListModel(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00, 1, 'a'})                                     // push back "a"
	f.Add([]byte{0x01, 1, 'x', 0x02})                               // push front "x", pop front
	f.Add([]byte{0x00, 1, 'a', 0x00, 1, 'b', 0x03, 0x03, 0x03})     // drain past empty
	f.Add([]byte{0x01, 2, 'h', 'i', 0x00, 0, 0x04, 0x00, 0x05, 1})  // get, then a set cut short before its value
	f.Add([]byte{0x00, 3, 'x', 'y', 'z', 0x02, 0x00, 1, 'w', 0x03}) // interleave

	f.Fuzz(func(t *testing.T, program []byte) {
		items := sorted.NewMemoryKeyValue()
		c := ordis.New(items, sorted.NewMemoryKeyValue())
		defer c.Close()
		name := []byte("fuzz")
		var deque [][]byte

		// takeVal reads a length byte then that many value bytes.
		takeVal := func() ([]byte, bool) {
			if len(program) == 0 {
				return nil, false
			}
			n := int(program[0])
			program = program[1:]
			if n > len(program) {
				n = len(program)
			}
			v := program[:n]
			program = program[n:]
			return v, true
		}

		for len(program) > 0 {
			op := program[0]
			program = program[1:]
			switch op % 6 {
			case 0: // push back
				v, ok := takeVal()
				if !ok {
					return
				}
				if err := c.ListPushBack(name, v); err != nil {
					t.Fatalf("push back: %v", err)
				}
				deque = append(deque, v)
			case 1: // push front
				v, ok := takeVal()
				if !ok {
					return
				}
				if err := c.ListPushFront(name, v); err != nil {
					t.Fatalf("push front: %v", err)
				}
				deque = append([][]byte{v}, deque...)
			case 2: // pop front
				got, err := c.ListPopFront(name)
				if err != nil {
					t.Fatalf("pop front: %v", err)
				}
				checkPop(t, &deque, got, true)
			case 3: // pop back
				got, err := c.ListPopBack(name)
				if err != nil {
					t.Fatalf("pop back: %v", err)
				}
				checkPop(t, &deque, got, false)
			case 4: // get at index of next byte
				ix, ok := takeIx(&program)
				if !ok {
					return
				}
				got, err := c.ListGet(name, ix)
				if err != nil {
					t.Fatalf("get: %v", err)
				}
				if ix < uint64(len(deque)) {
					if got == nil || !bytes.Equal(got, deque[ix]) {
						t.Fatalf("get(%d) = %q; model has %q", ix, got, deque[ix])
					}
				} else if got != nil {
					t.Fatalf("get(%d) = %q; model is out of range", ix, got)
				}
			case 5: // set at index of next byte
				ix, ok := takeIx(&program)
				if !ok {
					return
				}
				v, ok := takeVal()
				if !ok {
					return
				}
				old, err := c.ListSet(name, ix, v)
				if err != nil {
					t.Fatalf("set: %v", err)
				}
				if ix < uint64(len(deque)) {
					if !bytes.Equal(old, deque[ix]) {
						t.Fatalf("set(%d) old = %q; model has %q", ix, old, deque[ix])
					}
					deque[ix] = v
				} else if old != nil {
					t.Fatalf("set(%d) old = %q; model is out of range", ix, old)
				}
			}
		}

		// Final sweep: lengths and every element agree.
		n, err := c.ListLen(name)
		if err != nil {
			t.Fatal(err)
		}
		if n != uint64(len(deque)) {
			t.Fatalf("ListLen = %d; model has %d", n, len(deque))
		}
		for i, want := range deque {
			got, err := c.ListGet(name, uint64(i))
			if err != nil || !bytes.Equal(got, want) {
				t.Fatalf("ListGet(%d) = %q, %v; model has %q", i, got, err, want)
			}
		}
	})
}

func takeIx(program *[]byte) (uint64, bool) {
	if len(*program) == 0 {
		return 0, false
	}
	ix := uint64((*program)[0])
	*program = (*program)[1:]
	return ix, true
}

func checkPop(t *testing.T, deque *[][]byte, got []byte, front bool) {
	t.Helper()
	d := *deque
	if len(d) == 0 {
		if got != nil {
			t.Fatalf("pop on empty = %q; want nil", got)
		}
		return
	}
	var want []byte
	if front {
		want, *deque = d[0], d[1:]
	} else {
		want, *deque = d[len(d)-1], d[:len(d)-1]
	}
	if got == nil || !bytes.Equal(got, want) {
		t.Fatalf("pop = %q; model has %q", got, want)
	}
}
