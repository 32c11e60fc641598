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
Package socket owns the UDP and TCP endpoints the PD and MD engines send
and receive on. Endpoints are raw unix syscall wrappers in blocking mode
with SO_REUSEPORT set, the same shape ptp4u and sptp use for their event
sockets, generalized here to also track multicast group membership and
to pool endpoints by (source address, QoS/TTL, kind) so publications that
share those three don't each open their own socket.
*/
package socket
