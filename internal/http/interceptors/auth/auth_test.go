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

package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(mw func(http.Handler) http.Handler, authorization string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(w, r)
	return w
}

func TestDisabledWithoutCredentials(t *testing.T) {
	mw := New(&Options{}, nil)
	w := request(mw, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRejectsMissingHeader(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "secret"}, nil)
	w := request(mw, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm=""`, w.Header().Get("WWW-Authenticate"))
}

func TestAcceptsValidCredentials(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "secret"}, nil)
	token := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	w := request(mw, "Basic "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRejectsWrongPassword(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "secret"}, nil)
	token := base64.StdEncoding.EncodeToString([]byte("admin:nope"))
	w := request(mw, "Basic "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordWithColon(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "se:cret"}, nil)
	token := base64.StdEncoding.EncodeToString([]byte("admin:se:cret"))
	w := request(mw, "Basic "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTolerantBase64(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "secret"}, nil)
	// url-safe alphabet without padding
	token := base64.RawURLEncoding.EncodeToString([]byte("admin:secret"))
	w := request(mw, "basic "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSkipFunc(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "secret"}, func(r *http.Request) bool {
		return r.Method == http.MethodGet
	})
	w := request(mw, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRealmInChallenge(t *testing.T) {
	mw := New(&Options{Username: "admin", Password: "secret", Realm: "dav"}, nil)
	w := request(mw, "")
	assert.Equal(t, `Basic realm="dav"`, w.Header().Get("WWW-Authenticate"))
}
