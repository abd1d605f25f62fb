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
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/YieldRay/wedbav/internal/http/services/webdav/net"
	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/storage"
	"github.com/YieldRay/wedbav/pkg/storage/fs/sqlfs"
)

// notModified evaluates the conditional request headers against the stored
// entity. If-None-Match wins over If-Modified-Since (RFC 7232 section 6);
// the mtime comparison is at second granularity, HTTP-dates carry no less.
func notModified(r *http.Request, info *storage.FileInfo) bool {
	if match := r.Header.Get(net.HeaderIfNoneMatch); match != "" {
		return match == info.ETag
	}
	if since := r.Header.Get(net.HeaderIfModifiedSince); since != "" {
		if t, err := http.ParseTime(since); err == nil {
			return !info.MTime.UTC().Truncate(time.Second).After(t)
		}
	}
	return false
}

// handleGet serves GET and HEAD downloads. Bodies larger than one chunk are
// streamed instead of loaded at once.
func (s *svc) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	fn := requestPath(r)

	info, err := s.fs.Stat(ctx, fn)
	if err != nil {
		s.handleFsError(log, w, err)
		return
	}
	if info.IsDirectory() {
		w.Header().Set(net.HeaderAllow, methodsAllowed)
		w.WriteHeader(http.StatusMethodNotAllowed)
		b, err := Marshal(exception{
			code:    SabredavMethodNotAllowed,
			message: "GET is not allowed on collections, use PROPFIND instead",
		})
		HandleWebdavError(log, w, b, err)
		return
	}

	headers := w.Header()
	headers.Set(net.HeaderETag, info.ETag)
	headers.Set(net.HeaderLastModified, info.MTime.UTC().Format(net.RFC1123))

	if notModified(r, info) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	headers.Set(net.HeaderContentType, "application/octet-stream")
	headers.Set(net.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	headers.Set(net.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s", strconv.Quote(path.Base(fn))))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	if info.Size > sqlfs.MaxChunkSize {
		s.streamFile(w, r, fn)
		return
	}
	data, err := s.fs.ReadFile(ctx, fn)
	if err != nil {
		s.handleFsError(log, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("error writing body")
	}
}

func (s *svc) streamFile(w http.ResponseWriter, r *http.Request, fn string) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	rc, err := s.fs.CreateReadStream(ctx, fn)
	if err != nil {
		s.handleFsError(log, w, err)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Error().Err(err).Msg("error closing read stream")
		}
	}()
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// headers are gone, all we can do is log
		log.Error().Err(err).Msg("error streaming body")
	}
}
