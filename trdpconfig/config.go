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

package trdpconfig

import (
	"fmt"
	"net"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/tcnopen/trdp-go/mdengine"
	"github.com/tcnopen/trdp-go/pdengine"
)

// StaticConfig is the set of options fixed for the life of a trdpd
// process; changing one requires a restart.
type StaticConfig struct {
	ConfigFile     string
	DebugAddr      string
	Interface      string
	IP             net.IP
	LeaderIP       net.IP
	LogLevel       string
	MonitoringPort int
	PidFile        string
}

// PreallocEntry mirrors trdpmem.PreallocBin in a YAML-friendly shape
// (trdpconfig does not import trdpmem, to keep the dependency direction
// config -> engines one-way). Neither trdpconfig nor cmd/trdpd converts
// these entries into trdpmem.PreallocBin values.
type PreallocEntry struct {
	Size  int `yaml:"size"`
	Count int `yaml:"count"`
}

// DynamicConfig is the set of options a running trdpd can reload from
// its YAML config file without a restart: memory pool sizing and the
// PD/MD engine defaults an external loader would otherwise supply per
// the wire protocol's own configuration section.
type DynamicConfig struct {
	MemPoolBytes int64           `yaml:"mem_pool_bytes"`
	MemPrealloc  []PreallocEntry `yaml:"mem_prealloc"`

	PD pdengine.Config `yaml:"pd"`
	MD mdengine.Config `yaml:"md"`
}

// Config is trdpd's full configuration.
type Config struct {
	StaticConfig
	DynamicConfig
}

// DefaultConfig returns sane defaults for a trdpd run with no config
// file: engine defaults, a 16MiB memory pool and no pre-fragmentation.
func DefaultConfig() Config {
	return Config{
		StaticConfig: StaticConfig{
			Interface:      "eth0",
			LogLevel:       "warning",
			MonitoringPort: 17225,
			PidFile:        "/var/run/trdpd.pid",
		},
		DynamicConfig: DynamicConfig{
			MemPoolBytes: 16 * 1024 * 1024,
			PD:           pdengine.DefaultConfig(),
			MD:           mdengine.DefaultConfig(),
		},
	}
}

// ReadDynamicConfig loads a DynamicConfig from a YAML file at path.
func ReadDynamicConfig(path string) (*DynamicConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trdpconfig: ReadDynamicConfig: %w", err)
	}

	dc := DynamicConfig{}
	if err := yaml.Unmarshal(raw, &dc); err != nil {
		return nil, fmt.Errorf("trdpconfig: ReadDynamicConfig: %w", err)
	}
	if dc.PD.PollInterval == 0 {
		dc.PD.PollInterval = pollIntervalFloor
	}
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("trdpconfig: ReadDynamicConfig: %w", err)
	}
	return &dc, nil
}

// Write serializes dc to path as YAML.
func (dc *DynamicConfig) Write(path string) error {
	b, err := yaml.Marshal(dc)
	if err != nil {
		return fmt.Errorf("trdpconfig: Write: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}

// Validate reports whether dc is internally consistent.
func (dc *DynamicConfig) Validate() error {
	if dc.MemPoolBytes <= 0 {
		return fmt.Errorf("mem_pool_bytes must be positive")
	}
	for _, pb := range dc.MemPrealloc {
		if pb.Size <= 0 || pb.Count < 0 {
			return fmt.Errorf("invalid mem_prealloc entry %+v", pb)
		}
	}
	if err := dc.PD.Validate(); err != nil {
		return fmt.Errorf("invalid pd config: %w", err)
	}
	if err := dc.MD.Validate(); err != nil {
		return fmt.Errorf("invalid md config: %w", err)
	}
	return nil
}

// pollIntervalFloor keeps an operator-supplied poll interval of zero
// from starving GetInterval callers; ReadDynamicConfig applies it when a
// loaded config file omits it.
const pollIntervalFloor = time.Millisecond
