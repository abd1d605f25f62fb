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

// Package net parses and renders the WebDAV header vocabulary.
package net

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/YieldRay/wedbav/pkg/utils"
	"github.com/pkg/errors"
)

// NsDav is the DAV: XML namespace.
const NsDav = "DAV:"

// RFC1123 is the HTTP-date layout used for getlastmodified and
// Last-Modified. time.RFC1123 would render the zone name instead of "GMT"
// for non-UTC times, see https://github.com/golang/go/issues/13781
const RFC1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// Depth is the level of recursion requested by a WebDAV request.
type Depth int

const (
	// DepthZero addresses the resource itself.
	DepthZero Depth = 0
	// DepthOne addresses the resource and its direct children.
	DepthOne Depth = 1
	// DepthInfinity addresses the resource and all its descendants.
	DepthInfinity Depth = -1
)

func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	default:
		return "infinity"
	}
}

// ParseDepth reads a Depth header value. An absent header means infinity
// (RFC 4918 section 9.8.3).
func ParseDepth(s string) (Depth, error) {
	switch strings.ToLower(s) {
	case "", "infinity":
		return DepthInfinity, nil
	case "0":
		return DepthZero, nil
	case "1":
		return DepthOne, nil
	default:
		return DepthZero, errors.Errorf("invalid depth %q", s)
	}
}

// ParseOverwrite reads an Overwrite header value. An absent header means T
// (RFC 4918 section 9.8.4).
func ParseOverwrite(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "", "T":
		return true, nil
	case "F":
		return false, nil
	default:
		return false, errors.Errorf("invalid overwrite %q", s)
	}
}

// ErrCrossOrigin marks a Destination header pointing at a different origin,
// which a gateway would have to proxy (502 per RFC 4918 section 9.9.4).
var ErrCrossOrigin = errors.New("destination is on another origin")

// ParseDestination extracts the path component of the Destination header.
// The header must be an absolute URI on the request's origin, or an absolute
// path; the result is percent-decoded and normalized.
func ParseDestination(r *http.Request) (string, error) {
	dst := r.Header.Get(HeaderDestination)
	if dst == "" {
		return "", errors.New("destination header is empty")
	}
	u, err := url.Parse(dst)
	if err != nil {
		return "", errors.Wrap(err, "malformed destination header")
	}
	if u.Host != "" && u.Host != r.Host {
		return "", ErrCrossOrigin
	}
	if u.Path == "" {
		return "", errors.New("destination header has no path")
	}
	return utils.NormalizePath(utils.DecodeURIPath(u.EscapedPath())), nil
}
