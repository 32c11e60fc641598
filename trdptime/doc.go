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
Package trdptime implements the (seconds, microseconds) monotonic time pair
used throughout the TRDP stack for deadlines: publish intervals, subscribe
timeouts and MD reply/confirm timeouts.

Every public operation (publish, subscribe, process) snapshots Now() exactly
once per call and compares absolute deadlines against that single snapshot,
so a slow process() pass cannot cause two entries to disagree about whether
"now" has passed a deadline.
*/
package trdptime
