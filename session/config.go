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

package session

import (
	"net/netip"

	"github.com/tcnopen/trdp-go/marshal"
	"github.com/tcnopen/trdp-go/mdengine"
	"github.com/tcnopen/trdp-go/pdengine"
)

// Config is everything Open needs to stand up one Session.
type Config struct {
	// OwnIP is this session's own address, stamped as the default SrcIP
	// for publications/subscriptions/requests that do not override it.
	OwnIP netip.Addr
	// LeaderIP is the virtual (redundancy leader) address this session
	// presents to the network when it is the active half of a
	// redundancy pair; see SetRedundant.
	LeaderIP netip.Addr

	PD     pdengine.Config
	MD     mdengine.Config
	Tables *marshal.Tables
}

// DefaultConfig returns the PD/MD defaults each engine itself defaults to.
func DefaultConfig() Config {
	return Config{
		PD: pdengine.DefaultConfig(),
		MD: mdengine.DefaultConfig(),
	}
}
