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

package webdav

import (
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/YieldRay/wedbav/internal/http/services/webdav/net"
	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/storage"
	"github.com/YieldRay/wedbav/pkg/storage/fs/sqlfs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// IsBrowserRequest tells interactive browsers apart from WebDAV clients.
// Every mainstream browser still sends the historical Mozilla/ prefix.
func IsBrowserRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get(net.HeaderUserAgent), "Mozilla/")
}

// handleBrowserGet serves GETs coming from a browser: stored pages inline,
// directories as index.html or a generated listing.
func (s *svc) handleBrowserGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	fn := requestPath(r)

	info, err := s.fs.Stat(ctx, fn)
	if err != nil {
		log.Debug().Err(err).Str("path", fn).Msg("browser target not found")
		http.NotFound(w, r)
		return
	}
	if info.IsFile() {
		s.serveBrowserFile(w, r, info)
		return
	}

	// relative hrefs in listings and index pages need the trailing slash
	if fn != "/" && !strings.HasSuffix(r.URL.Path, "/") {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}

	index := path.Join(fn, "index.html")
	if idxInfo, err := s.fs.Stat(ctx, index); err == nil && idxInfo.IsFile() {
		s.serveBrowserFile(w, r, idxInfo)
		return
	}
	if s.c.Browser == BrowserList {
		s.serveBrowserListing(w, r, fn)
		return
	}
	http.NotFound(w, r)
}

// serveBrowserFile writes the file inline with a sniffed content type,
// honouring If-None-Match and If-Modified-Since.
func (s *svc) serveBrowserFile(w http.ResponseWriter, r *http.Request, info *storage.FileInfo) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	headers := w.Header()
	headers.Set(net.HeaderETag, info.ETag)
	headers.Set(net.HeaderLastModified, info.MTime.UTC().Format(net.RFC1123))

	if notModified(r, info) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if info.Size > sqlfs.MaxChunkSize {
		s.streamBrowserFile(w, r, info)
		return
	}
	data, err := s.fs.ReadFile(ctx, info.Path)
	if err != nil {
		s.handleFsError(log, w, err)
		return
	}
	headers.Set(net.HeaderContentType, contentTypeFor(info.Path, data))
	headers.Set(net.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("error writing body")
	}
}

// streamBrowserFile sniffs the content type from the leading bytes and
// streams the rest, the read stream cannot be restarted.
func (s *svc) streamBrowserFile(w http.ResponseWriter, r *http.Request, info *storage.FileInfo) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	rc, err := s.fs.CreateReadStream(ctx, info.Path)
	if err != nil {
		s.handleFsError(log, w, err)
		return
	}
	defer closeStream(log, rc)

	head := make([]byte, 3072)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		s.handleFsError(log, w, err)
		return
	}
	headers := w.Header()
	headers.Set(net.HeaderContentType, contentTypeFor(info.Path, head[:n]))
	headers.Set(net.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(head[:n]); err != nil {
		log.Error().Err(err).Msg("error writing body")
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		log.Error().Err(err).Msg("error streaming body")
	}
}

// contentTypeFor prefers the extension and falls back to content sniffing.
func contentTypeFor(fn string, data []byte) string {
	if t := mime.TypeByExtension(path.Ext(fn)); t != "" {
		return t
	}
	return mimetype.Detect(data).String()
}

// serveBrowserListing renders the directory as a minimal HTML page.
func (s *svc) serveBrowserListing(w http.ResponseWriter, r *http.Request, fn string) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	entries, err := s.fs.ReadDir(ctx, fn, storage.ReadDirOptions{})
	if err != nil {
		s.handleFsError(log, w, err)
		return
	}

	var b strings.Builder
	title := html.EscapeString(fn)
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Index of %s</title></head>\n<body>\n", title)
	fmt.Fprintf(&b, "<h1>Index of %s</h1>\n<ul>\n", title)
	if fn != "/" {
		b.WriteString("<li><a href=\"../\">../</a></li>\n")
	}
	for _, e := range entries {
		name := e.Name
		href := escapeSegment(name)
		if e.Dir {
			name += "/"
			href += "/"
		}
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", href, html.EscapeString(name))
	}
	b.WriteString("</ul>\n</body>\n</html>\n")

	w.Header().Set(net.HeaderContentType, "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, b.String()); err != nil {
		log.Error().Err(err).Msg("error writing body")
	}
}

// escapeSegment percent-encodes a single path segment for use in an href.
func escapeSegment(s string) string {
	u := url.URL{Path: s}
	return u.EscapedPath()
}

func closeStream(log *zerolog.Logger, rc io.ReadCloser) {
	if err := rc.Close(); err != nil {
		log.Error().Err(err).Msg("error closing read stream")
	}
}
