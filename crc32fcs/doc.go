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
Package crc32fcs computes the TRDP frame check sequence: an inverted
IEEE 802.3 CRC32 (polynomial 0xEDB88320, init 0xFFFFFFFF, final XOR
0xFFFFFFFF) stored little-endian on the wire, over a header or body span.

No third-party library in the retrieved corpus implements this checksum —
it is the IEEE 802.3 polynomial that Go's standard hash/crc32 package
already exposes as crc32.IEEETable, so this package is a thin, incremental
wrapper around it rather than a hand-rolled polynomial implementation. See
DESIGN.md for the standard-library justification.
*/
package crc32fcs
