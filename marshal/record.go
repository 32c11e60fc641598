/*
Copyright The TRDP-Go Authors.

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

package marshal

// Record is one dataset instance: Fields holds one entry per schema
// Field, in schema order. The Go type of each entry is picked by the
// matching Field:
//
//   - Count == 1, scalar type  -> the scalar Go type (bool, int8, uint16, ...)
//   - Count == 1, IsDataset    -> *Record
//   - Count != 1, scalar type  -> a slice of the scalar Go type
//   - Count != 1, IsDataset    -> []*Record
type Record struct {
	Fields []any
}
