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

// Package mdengine implements the message data request/reply/notify state
// machine: a caller session tracks one outstanding request until its
// replies (or timeout) resolve it; a replier session tracks the confirm a
// requested-confirmation reply (Mq) is still owed. Both kinds advance
// their own deadline and park on one of two deadline-ordered heaps, the
// same shape pdengine uses for publications and subscriptions.
//
// Engine does not read sockets itself: callers hand Dispatch the raw bytes
// they received (from a UDP recvfrom or a framed TCP read), and Process
// drives retransmits and timeout expiry against an explicit "now".
package mdengine
