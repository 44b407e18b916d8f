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

import "encoding/binary"

// TableMeta is the decoded table metadata record. The zero value
// describes an empty table.
type TableMeta struct {
	Len uint64
}

const tableMetaSize = 8

func (m TableMeta) encode() []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, tableMetaSize), m.Len)
}

func decodeTableMeta(in []byte) (TableMeta, bool) {
	if len(in) != tableMetaSize {
		return TableMeta{}, false
	}
	return TableMeta{Len: binary.BigEndian.Uint64(in)}, true
}
