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

package record

import (
	"bytes"
	"errors"
	"testing"
	"testing/quick"
)

func TestRoundTrip(t *testing.T) {
	f := func(tagByte uint8, data []byte) bool {
		tag := Tag(tagByte % 3)
		built := New(tag, data)
		decoded, err := Decode(built.Encode())
		if err != nil {
			return false
		}
		return decoded.Tag() == tag &&
			bytes.Equal(decoded.Data(), data) &&
			bytes.Equal(decoded.Encode(), built.Encode())
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Decode(nil) error = %v; want ErrEmpty", err)
	}
	if _, err := Decode([]byte{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("Decode(empty) error = %v; want ErrEmpty", err)
	}
	for _, b := range []byte{3, 4, 0x80, 0xFF} {
		if _, err := Decode([]byte{b, 0x61}); !errors.Is(err, ErrBadTag) {
			t.Errorf("Decode(tag %d) error = %v; want ErrBadTag", b, err)
		}
	}
}

func TestDecodeValid(t *testing.T) {
	r, err := Decode([]byte{2, 0x61, 0x62})
	if err != nil {
		t.Fatal(err)
	}
	if r.Tag() != TagList || !bytes.Equal(r.Data(), []byte("ab")) {
		t.Errorf("Decode = (%v, %q)", r.Tag(), r.Data())
	}
	// Tag-only records carry an empty payload.
	r, err = Decode([]byte{0})
	if err != nil {
		t.Fatal(err)
	}
	if r.Tag() != TagBlob || len(r.Data()) != 0 {
		t.Errorf("Decode tag-only = (%v, %q)", r.Tag(), r.Data())
	}
}

func TestExpect(t *testing.T) {
	r := New(TagTable, []byte("v"))
	if _, err := r.Expect(TagTable); err != nil {
		t.Errorf("Expect(table) = %v", err)
	}
	_, err := r.Expect(TagList)
	var te *TypeError
	if !errors.As(err, &te) {
		t.Fatalf("Expect(list) error = %v; want TypeError", err)
	}
	if te.Expected != TagList || te.Found != TagTable {
		t.Errorf("TypeError = %+v", te)
	}
}
