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

// Package auth gates requests behind HTTP basic authentication.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Options configure the basic auth gate. Empty username and password
// disable authentication entirely.
type Options struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Realm    string `mapstructure:"realm"`
}

// SkipFunc exempts a request from authentication, used to keep read-only
// browser traffic open while the DAV surface stays protected.
type SkipFunc func(r *http.Request) bool

// NewFromMap is like New for a generic config map.
func NewFromMap(m map[string]interface{}, skip SkipFunc) (func(http.Handler) http.Handler, error) {
	var opts Options
	if err := mapstructure.Decode(m, &opts); err != nil {
		return nil, errors.Wrap(err, "auth: error decoding options")
	}
	return New(&opts, skip), nil
}

// New returns an HTTP middleware enforcing basic auth with the configured
// credentials. skip may be nil.
func New(opts *Options, skip SkipFunc) func(http.Handler) http.Handler {
	enabled := opts.Username != "" || opts.Password != ""
	challenge := fmt.Sprintf("Basic realm=%q", opts.Realm)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled || (skip != nil && skip(r)) {
				next.ServeHTTP(w, r)
				return
			}
			user, pass, ok := parseBasicAuth(r.Header.Get("Authorization"))
			if !ok || !credentialsMatch(user, pass, opts.Username, opts.Password) {
				log := appctx.GetLogger(r.Context())
				log.Debug().Str("user", user).Msg("basic auth failed")
				w.Header().Set("WWW-Authenticate", challenge)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseBasicAuth decodes an Authorization header. Unlike
// http.Request.BasicAuth it tolerates url-safe alphabets and missing
// padding, some DAV clients are sloppy here.
func parseBasicAuth(h string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", "", false
	}
	payload := strings.TrimSpace(h[len(prefix):])
	payload = strings.ReplaceAll(payload, "-", "+")
	payload = strings.ReplaceAll(payload, "_", "/")
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", "", false
	}
	user, pass, found := strings.Cut(string(raw), ":")
	if !found {
		return "", "", false
	}
	return user, pass, true
}

func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	u := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser))
	p := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass))
	return u&p == 1
}
