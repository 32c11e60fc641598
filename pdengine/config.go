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

package pdengine

import (
	"fmt"
	"time"
)

// StaticConfig holds options fixed for the lifetime of a Scheduler.
type StaticConfig struct {
	// TrafficShaping, when true, places each new publication's first
	// deadline at the least-loaded millisecond slot within its own
	// interval instead of at now+interval.
	TrafficShaping bool
}

// DynamicConfig holds options a Scheduler may pick up between Process
// calls without a restart.
type DynamicConfig struct {
	// PollInterval caps the value getInterval ever returns, so a caller
	// blocked in a socket poll always wakes up periodically even with
	// no publications or subscriptions due.
	PollInterval time.Duration
}

// Config is a Scheduler's full configuration.
type Config struct {
	StaticConfig
	DynamicConfig
}

// DefaultConfig returns the configuration the session façade uses unless
// overridden: no traffic shaping, 10ms poll interval.
func DefaultConfig() Config {
	return Config{
		DynamicConfig: DynamicConfig{PollInterval: 10 * time.Millisecond},
	}
}

// Validate reports whether c is internally consistent.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("pollinterval must be greater than zero")
	}
	return nil
}
