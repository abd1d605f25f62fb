// Copyright 2025-2026 YieldRay
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package net

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDepth(t *testing.T) {
	d, err := ParseDepth("")
	require.NoError(t, err)
	assert.Equal(t, DepthInfinity, d)

	d, err = ParseDepth("infinity")
	require.NoError(t, err)
	assert.Equal(t, DepthInfinity, d)

	d, err = ParseDepth("Infinity")
	require.NoError(t, err)
	assert.Equal(t, DepthInfinity, d)

	d, err = ParseDepth("0")
	require.NoError(t, err)
	assert.Equal(t, DepthZero, d)

	d, err = ParseDepth("1")
	require.NoError(t, err)
	assert.Equal(t, DepthOne, d)

	_, err = ParseDepth("2")
	assert.Error(t, err)
}

func TestParseOverwrite(t *testing.T) {
	o, err := ParseOverwrite("")
	require.NoError(t, err)
	assert.True(t, o)

	o, err = ParseOverwrite("T")
	require.NoError(t, err)
	assert.True(t, o)

	o, err = ParseOverwrite("F")
	require.NoError(t, err)
	assert.False(t, o)

	_, err = ParseOverwrite("yes")
	assert.Error(t, err)
}

func TestParseDestination(t *testing.T) {
	r := httptest.NewRequest("COPY", "http://example.com/src", nil)
	r.Header.Set(HeaderDestination, "http://example.com/dst%20dir/")
	p, err := ParseDestination(r)
	require.NoError(t, err)
	assert.Equal(t, "/dst dir", p)
}

func TestParseDestinationPathOnly(t *testing.T) {
	r := httptest.NewRequest("MOVE", "http://example.com/src", nil)
	r.Header.Set(HeaderDestination, "/plain/../dst")
	p, err := ParseDestination(r)
	require.NoError(t, err)
	assert.Equal(t, "/dst", p)
}

func TestParseDestinationCrossOrigin(t *testing.T) {
	r := httptest.NewRequest("COPY", "http://example.com/src", nil)
	r.Header.Set(HeaderDestination, "http://evil.example.org/dst")
	_, err := ParseDestination(r)
	assert.ErrorIs(t, err, ErrCrossOrigin)
}

func TestParseDestinationMissing(t *testing.T) {
	r := httptest.NewRequest("COPY", "http://example.com/src", nil)
	_, err := ParseDestination(r)
	assert.Error(t, err)
}
