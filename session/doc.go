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

// Package session binds one socket.Pool, one pdengine.Scheduler and one
// mdengine.Engine under a single mutex, exposing the publish/subscribe/
// request/reply surface a host application drives. Registry tracks every
// open Session so a caller has one place to enumerate and close them.
package session
