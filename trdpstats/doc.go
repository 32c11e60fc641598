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

// Package trdpstats collects the counters a running session exposes:
// per-message-type send/receive counts, result-code tallies and a
// streaming mean/variance of PD inter-arrival jitter per ComID, with
// JSON and Prometheus exporters for external monitoring.
package trdpstats
