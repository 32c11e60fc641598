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

// Package trdpmem implements the pre-sized, power-of-two bin allocator
// a Session draws PD/MD frame buffers from, so steady-state traffic
// never touches the Go heap after startup. Pool partitions a fixed
// byte budget into bins from 32 bytes up to 512KiB; Alloc rounds a
// request up to the next bin and Free returns the buffer to its bin.
// Allocation failure (a bin's high-water mark reached) is reported to
// the caller, never silently served from a smaller bin or the heap.
package trdpmem
