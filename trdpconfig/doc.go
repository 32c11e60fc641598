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

// Package trdpconfig holds the configuration a trdpd process loads at
// startup: StaticConfig for flags that require a restart to change, and
// DynamicConfig for the small set of values that can be reloaded from a
// YAML file on disk while the process keeps running.
package trdpconfig
