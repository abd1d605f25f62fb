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

// Common HTTP headers.
const (
	HeaderAllow              = "Allow"
	HeaderAuthorization      = "Authorization"
	HeaderContentDisposition = "Content-Disposition"
	HeaderContentLength      = "Content-Length"
	HeaderContentType        = "Content-Type"
	HeaderETag               = "ETag"
	HeaderIfModifiedSince    = "If-Modified-Since"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderLastModified       = "Last-Modified"
	HeaderLocation           = "Location"
	HeaderUserAgent          = "User-Agent"
	HeaderWWWAuthenticate    = "WWW-Authenticate"
)

// WebDAV headers.
const (
	HeaderDav         = "DAV"
	HeaderDepth       = "Depth"
	HeaderDestination = "Destination"
	HeaderOverwrite   = "Overwrite"
)

// CORS headers emitted on OPTIONS.
const (
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
	HeaderAccessControlAllowMethods = "Access-Control-Allow-Methods"
	HeaderAccessControlAllowOrigin  = "Access-Control-Allow-Origin"
)
