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

package wire

import "net/netip"

// Address identifies a PD or MD flow by ComID and the three address
// wildcards the data model allows: source, destination and, for
// multicast subscriptions, the joined group. A zero Addr in any field
// means "don't care" / "any".
type Address struct {
	ComID   uint32
	SrcIP   netip.Addr
	DestIP  netip.Addr
	MCGroup netip.Addr
}

// Matches reports whether rx, an address pulled off a received frame, is
// accepted by a as a subscription or listener filter. A zero field in a
// acts as a wildcard.
func (a Address) Matches(rx Address) bool {
	if a.ComID != 0 && a.ComID != rx.ComID {
		return false
	}
	if a.SrcIP.IsValid() && a.SrcIP != rx.SrcIP {
		return false
	}
	if a.DestIP.IsValid() && a.DestIP != rx.DestIP {
		return false
	}
	if a.MCGroup.IsValid() && a.MCGroup != rx.MCGroup {
		return false
	}
	return true
}

// IsMulticast reports whether DestIP names a multicast group.
func (a Address) IsMulticast() bool {
	return a.DestIP.IsValid() && a.DestIP.Is4() && a.DestIP.As4()[0]&0xf0 == 0xe0
}
