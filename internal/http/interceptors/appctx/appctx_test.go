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

package appctx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDReachesContextAndResponse(t *testing.T) {
	var seen string
	h := New(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := appctx.GetRequestID(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-Id"))
}

func TestLoggerInContext(t *testing.T) {
	called := false
	h := New(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		log := appctx.GetLogger(r.Context())
		require.NotNil(t, log)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.True(t, called)
}
