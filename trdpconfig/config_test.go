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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.DynamicConfig.Validate())
}

func TestWriteReadRoundTrip(t *testing.T) {
	dc := DefaultConfig().DynamicConfig
	dc.MemPoolBytes = 4 * 1024 * 1024

	path := filepath.Join(t.TempDir(), "trdpd.yaml")
	require.NoError(t, dc.Write(path))

	got, err := ReadDynamicConfig(path)
	require.NoError(t, err)
	assert.EqualValues(t, 4*1024*1024, got.MemPoolBytes)
}

func TestValidateRejectsZeroMemPool(t *testing.T) {
	dc := DefaultConfig().DynamicConfig
	dc.MemPoolBytes = 0
	assert.Error(t, dc.Validate())
}

func TestValidateRejectsBadPreallocEntry(t *testing.T) {
	dc := DefaultConfig().DynamicConfig
	dc.MemPrealloc = []PreallocEntry{{Size: 0, Count: 1}}
	assert.Error(t, dc.Validate())
}

func TestReadDynamicConfigMissingFile(t *testing.T) {
	_, err := ReadDynamicConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
