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

package trdperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapAndCodeOf(t *testing.T) {
	cause := errors.New("short read")
	err := New("wire.Validate", CRCError, cause)

	wrapped := fmt.Errorf("dispatch failed: %w", err)

	code, ok := CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CRCError, code)
	assert.True(t, errors.Is(wrapped, cause))
}

func TestCodeOfPlainError(t *testing.T) {
	_, ok := CodeOf(errors.New("not a trdperr.Error"))
	assert.False(t, ok)
}

func TestStringUnknownCode(t *testing.T) {
	assert.Equal(t, "ResultCode(999)", ResultCode(999).String())
}
