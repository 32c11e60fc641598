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

// Package pdengine implements the process data (PD) cyclic publish/
// subscribe scheduler: Publish and Subscribe allocate telegram entries,
// Process sends due publications and fires subscription timeouts, and
// Dispatch feeds a validated inbound frame to the matching subscription.
//
// Publications and subscriptions are held in a deadline-ordered min-heap
// rather than scanned linearly, so getInterval and Process both run in
// O(log n) per entry that actually changes deadline.
package pdengine
