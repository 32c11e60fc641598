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

package mdengine

import (
	"fmt"
	"time"
)

// BackoffConfig describes how long a caller waits before retrying a
// request to a replier that has failed to answer at all.
type BackoffConfig struct {
	Mode     string
	Step     int
	MaxValue int
}

// Validate reports whether c is internally consistent.
func (c *BackoffConfig) Validate() error {
	if c.Mode != backoffNone && c.Mode != backoffFixed && c.Mode != backoffLinear && c.Mode != backoffExponential {
		return fmt.Errorf("mode must be either %q, %q, %q or %q", backoffNone, backoffFixed, backoffLinear, backoffExponential)
	}
	if c.Mode != backoffNone {
		if c.Step <= 0 {
			return fmt.Errorf("step must be positive")
		}
		if c.Mode != backoffFixed && c.MaxValue <= 0 {
			return fmt.Errorf("maxvalue must be positive")
		}
	}
	return nil
}

// Config holds the per-engine defaults applied to Request/AddListener
// callers that do not override them.
type Config struct {
	ReplyTimeout   time.Duration
	ConfirmTimeout time.Duration
	ConnectTimeout time.Duration
	QoS            int
	TTL            int
	TCP            bool
	MaxRetries     int
	PollInterval   time.Duration
	Backoff        BackoffConfig
}

// DefaultConfig returns Config with the values §6 lists for MD defaults.
func DefaultConfig() Config {
	return Config{
		ReplyTimeout:   1 * time.Second,
		ConfirmTimeout: 1 * time.Second,
		ConnectTimeout: 60 * time.Second,
		MaxRetries:     0,
		PollInterval:   10 * time.Millisecond,
		Backoff:        BackoffConfig{Mode: backoffNone},
	}
}

// Validate reports whether c is internally consistent.
func (c *Config) Validate() error {
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("replytimeout must be greater than zero")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirmtimeout must be greater than zero")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connecttimeout must be greater than zero")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxretries must be 0 or positive")
	}
	if err := c.Backoff.Validate(); err != nil {
		return fmt.Errorf("invalid backoff config: %w", err)
	}
	return nil
}
