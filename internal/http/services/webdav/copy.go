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
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/YieldRay/wedbav/internal/http/services/webdav/net"
	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/YieldRay/wedbav/pkg/storage"
	"github.com/YieldRay/wedbav/pkg/utils"
	"github.com/rs/zerolog"
)

// copySpec is a validated COPY or MOVE request ready to execute.
type copySpec struct {
	source      *storage.FileInfo
	destination string
	depth       net.Depth
	successCode int
}

// copyFailure records a single resource that could not be copied. Partial
// failures turn the response into a 207.
type copyFailure struct {
	path string
	err  error
}

func (s *svc) handleCopy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	cp := s.prepareCopy(w, r, false)
	if cp == nil {
		return
	}
	failures := s.executeCopy(ctx, cp)
	if len(failures) > 0 {
		s.writeCopyFailures(w, r, failures)
		return
	}
	if cp.successCode == http.StatusCreated {
		w.Header().Set(net.HeaderLocation, locationURI(r, cp.destination))
	}
	log.Debug().Str("src", cp.source.Path).Str("dst", cp.destination).Msg("copy done")
	w.WriteHeader(cp.successCode)
}

// prepareCopy validates the headers and preconditions shared by COPY and
// MOVE. On failure it writes the error response and returns nil.
func (s *svc) prepareCopy(w http.ResponseWriter, r *http.Request, isMove bool) *copySpec {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	src := requestPath(r)

	dst, err := net.ParseDestination(r)
	if err != nil {
		log.Debug().Err(err).Msg("invalid destination header")
		if err == net.ErrCrossOrigin {
			w.WriteHeader(http.StatusBadGateway)
		} else {
			w.WriteHeader(http.StatusBadRequest)
		}
		return nil
	}
	overwrite, err := net.ParseOverwrite(r.Header.Get(net.HeaderOverwrite))
	if err != nil {
		log.Debug().Err(err).Msg("invalid overwrite header")
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}
	depth, err := net.ParseDepth(r.Header.Get(net.HeaderDepth))
	if err != nil {
		log.Debug().Err(err).Msg("invalid depth header")
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}
	// RFC 4918 section 9.8.3: COPY and MOVE know only 0 and infinity
	if depth == net.DepthOne {
		log.Debug().Msg("depth 1 is not valid for copy or move")
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}

	srcInfo, err := s.fs.Stat(ctx, src)
	if err != nil {
		s.handleFsError(log, w, err)
		return nil
	}
	if isMove && src == "/" {
		s.forbid(log, w, "the root collection cannot be moved")
		return nil
	}
	if isMove && srcInfo.IsDirectory() && depth != net.DepthInfinity {
		log.Debug().Msg("MOVE on a collection requires depth infinity")
		w.WriteHeader(http.StatusBadRequest)
		return nil
	}
	if dst == "/" {
		s.forbid(log, w, "the root collection cannot be a destination")
		return nil
	}
	if src == dst {
		s.forbid(log, w, "source and destination are the same resource")
		return nil
	}
	if strings.HasPrefix(dst, src+"/") {
		s.forbid(log, w, "destination is contained in the source collection")
		return nil
	}

	if parent := path.Dir(dst); parent != "/" {
		pInfo, err := s.fs.Stat(ctx, parent)
		if err != nil || !pInfo.IsDirectory() {
			log.Debug().Str("parent", parent).Msg("destination parent is not a collection")
			w.WriteHeader(http.StatusConflict)
			b, merr := Marshal(exception{
				code:    SabredavConflict,
				message: "the destination node is not found",
			})
			HandleWebdavError(log, w, b, merr)
			return nil
		}
	}

	successCode := http.StatusCreated
	if _, err := s.fs.Stat(ctx, dst); err == nil {
		if !overwrite {
			log.Debug().Str("dst", dst).Msg("destination exists and overwrite is false")
			w.WriteHeader(http.StatusPreconditionFailed)
			b, merr := Marshal(exception{
				code:    SabredavPreconditionFailed,
				message: "the destination node already exists, and the overwrite header is set to false",
			})
			HandleWebdavError(log, w, b, merr)
			return nil
		}
		// RFC 4918 section 9.8.4: an overwritten destination answers 204
		successCode = http.StatusNoContent
		if err := s.fs.Rm(ctx, dst, storage.RmOptions{Recursive: true, Force: true}); err != nil {
			s.handleFsError(log, w, err)
			return nil
		}
	}

	return &copySpec{
		source:      srcInfo,
		destination: dst,
		depth:       depth,
		successCode: successCode,
	}
}

// executeCopy walks the source tree and copies what it can, collecting the
// resources that failed instead of aborting.
func (s *svc) executeCopy(ctx context.Context, cp *copySpec) []copyFailure {
	var failures []copyFailure
	s.descendCopy(ctx, cp.source, cp.destination, cp.depth, &failures)
	return failures
}

func (s *svc) descendCopy(ctx context.Context, src *storage.FileInfo, dst string, depth net.Depth, failures *[]copyFailure) {
	log := appctx.GetLogger(ctx)

	if src.IsFile() {
		if err := s.fs.CopyFile(ctx, src.Path, dst); err != nil {
			*failures = append(*failures, copyFailure{path: dst, err: err})
		}
		return
	}

	if _, err := s.fs.Mkdir(ctx, dst, storage.MkdirOptions{}); err != nil && !errtypes.IsExist(err) {
		*failures = append(*failures, copyFailure{path: dst, err: err})
		return
	}
	if depth != net.DepthInfinity {
		return
	}

	entries, err := s.fs.ReadDir(ctx, src.Path, storage.ReadDirOptions{})
	if err != nil {
		*failures = append(*failures, copyFailure{path: src.Path, err: err})
		return
	}
	for _, e := range entries {
		childSrc := path.Join(src.Path, e.Name)
		childDst := path.Join(dst, e.Name)
		info, err := s.fs.Stat(ctx, childSrc)
		if err != nil {
			log.Debug().Err(err).Str("path", childSrc).Msg("skipping unstattable entry")
			*failures = append(*failures, copyFailure{path: childDst, err: err})
			continue
		}
		s.descendCopy(ctx, info, childDst, depth, failures)
	}
}

// writeCopyFailures renders the partial failures of a COPY or MOVE as a
// multistatus document (RFC 4918 section 9.8.5).
func (s *svc) writeCopyFailures(w http.ResponseWriter, r *http.Request, failures []copyFailure) {
	log := appctx.GetLogger(r.Context())

	responses := make([]responseXML, 0, len(failures))
	for _, f := range failures {
		status := statusForError(f.err)
		responses = append(responses, responseXML{
			Href:                utils.EncodePath(f.path),
			Status:              fmt.Sprintf("HTTP/1.1 %d %s", status, http.StatusText(status)),
			ResponseDescription: f.err.Error(),
		})
	}
	msg, err := xml.Marshal(&multistatusXML{
		XmlnsD:    net.NsDav,
		Responses: responses,
	})
	if err != nil {
		log.Error().Err(err).Msg("error marshalling multistatus")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set(net.HeaderContentType, "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	if _, err := w.Write(append([]byte(xml.Header), msg...)); err != nil {
		log.Error().Err(err).Msg("error writing body")
	}
}

// locationURI renders the Location of a freshly created resource as an
// absolute URI on the request's origin (RFC 7231 section 7.1.2).
func locationURI(r *http.Request, p string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + utils.EncodePath(p)
}

func (s *svc) forbid(log *zerolog.Logger, w http.ResponseWriter, msg string) {
	log.Debug().Msg(msg)
	w.WriteHeader(http.StatusForbidden)
	b, err := Marshal(exception{
		code:    SabredavPermissionDenied,
		message: msg,
	})
	HandleWebdavError(log, w, b, err)
}
