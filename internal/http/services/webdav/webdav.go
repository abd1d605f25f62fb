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

// Package webdav implements a class-1 WebDAV server on top of a storage.FS.
package webdav

import (
	"net/http"

	"github.com/YieldRay/wedbav/internal/http/services/webdav/net"
	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/storage"
	"github.com/YieldRay/wedbav/pkg/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Browser modes for plain browser GET requests.
const (
	// BrowserDisabled serves every GET as a download.
	BrowserDisabled = "disabled"
	// BrowserEnabled serves stored HTML pages, resolving "/" and trailing
	// slashes to index.html.
	BrowserEnabled = "enabled"
	// BrowserList behaves like BrowserEnabled but renders a directory
	// listing where no page exists.
	BrowserList = "list"
)

// Config holds the options for the webdav service.
type Config struct {
	// Browser selects how plain browser GETs are answered: "disabled",
	// "enabled" or "list".
	Browser string `mapstructure:"browser"`
}

func (c *Config) init() error {
	switch c.Browser {
	case "":
		c.Browser = BrowserDisabled
	case BrowserDisabled, BrowserEnabled, BrowserList:
	default:
		return errors.Errorf("invalid browser mode %q", c.Browser)
	}
	return nil
}

type svc struct {
	c  *Config
	fs storage.FS
}

// New returns an http.Handler serving the WebDAV protocol from fs.
func New(m map[string]interface{}, fs storage.FS) (http.Handler, error) {
	var c Config
	if err := mapstructure.Decode(m, &c); err != nil {
		return nil, errors.Wrap(err, "error decoding config")
	}
	return NewWithConfig(&c, fs)
}

// NewWithConfig is like New for an already decoded config.
func NewWithConfig(c *Config, fs storage.FS) (http.Handler, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	return &svc{c: c, fs: fs}, nil
}

// methodsAllowed is the Allow value advertised on OPTIONS and 405 responses.
const methodsAllowed = "PROPFIND, MOVE, DELETE, GET, PUT, MKCOL"

func addAccessHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set(net.HeaderAccessControlAllowOrigin, "*")
	headers.Set(net.HeaderAccessControlAllowMethods, "*")
	headers.Set(net.HeaderAccessControlAllowHeaders, "*")
	headers.Set(net.HeaderDav, "1")
}

func requestPath(r *http.Request) string {
	return utils.NormalizePath(utils.DecodeURIPath(r.URL.EscapedPath()))
}

func (s *svc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addAccessHeaders(w)

	switch r.Method {
	case MethodPropfind:
		s.handlePropfind(w, r)
	case MethodProppatch:
		s.handleProppatch(w, r)
	case MethodMkcol:
		s.handleMkcol(w, r)
	case MethodCopy:
		s.handleCopy(w, r)
	case MethodMove:
		s.handleMove(w, r)
	case http.MethodOptions:
		s.handleOptions(w, r)
	case http.MethodHead:
		s.handleGet(w, r)
	case http.MethodGet:
		if s.c.Browser != BrowserDisabled && IsBrowserRequest(r) {
			s.handleBrowserGet(w, r)
			return
		}
		s.handleGet(w, r)
	case http.MethodPut:
		s.handlePut(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		// LOCK and UNLOCK land here as well, we advertise class 1 only.
		log := appctx.GetLogger(r.Context())
		log.Debug().Str("method", r.Method).Msg("method not allowed")
		w.Header().Set(net.HeaderAllow, methodsAllowed)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// WebDAV methods missing from net/http.
const (
	MethodPropfind  = "PROPFIND"
	MethodProppatch = "PROPPATCH"
	MethodMkcol     = "MKCOL"
	MethodCopy      = "COPY"
	MethodMove      = "MOVE"
	MethodLock      = "LOCK"
	MethodUnlock    = "UNLOCK"
)
