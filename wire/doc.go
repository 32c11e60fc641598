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
Package wire implements the TRDP frame codec: PD and MD header layouts,
the msgType enumeration, and Validate, which runs a received frame through
the protocol-version, length, CRC and topo-count checks before the PD or MD
engine is allowed to look at it.

All multi-byte integers are big-endian on the wire; the header and body FCS
fields are little-endian, following §4.1.
*/
package wire
