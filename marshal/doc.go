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

/*
Package marshal transforms typed dataset values to and from TRDP wire
encoding, driven by a Tables schema loaded at startup rather than Go
struct tags or reflection. A dataset value is a *Record: an ordered slice
of field values whose Go type is picked by the field's declared WireType
(a plain scalar for Count == 1, a slice for a fixed or dynamic array, a
nested *Record for an embedded dataset).

Traversal is depth-first and capped at 8 levels to bound cyclic schemas.
Dynamic arrays carry a big-endian uint16 element count ahead of their
elements on the wire; fixed arrays and scalars don't.
*/
package marshal
