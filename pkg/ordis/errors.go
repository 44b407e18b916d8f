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
	"fmt"

	"ordis.org/pkg/keys"
)

// InvalidMetaError reports a metadata record whose payload failed to
// decode. It indicates corruption in the store.
type InvalidMetaError struct {
	Name []byte
}

func (e *InvalidMetaError) Error() string {
	return fmt.Sprintf("ordis: invalid metadata for name %x", e.Name)
}

// MissingValueError reports a list whose metadata admits an index with
// no value stored under the matching item key. The invariant tying
// metadata to items is broken; the list is unusable.
type MissingValueError struct {
	Name []byte
	Ix   keys.ListIndex
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("ordis: missing value in list %x at index %v", e.Name, e.Ix)
}
