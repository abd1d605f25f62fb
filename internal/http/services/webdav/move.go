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
	"net/http"

	"github.com/YieldRay/wedbav/internal/http/services/webdav/net"
	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/storage"
)

// handleMove is COPY followed by a delete of the source. The source is kept
// when any resource failed to copy, so nothing is lost on a partial failure.
func (s *svc) handleMove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	cp := s.prepareCopy(w, r, true)
	if cp == nil {
		return
	}
	failures := s.executeCopy(ctx, cp)
	if len(failures) > 0 {
		s.writeCopyFailures(w, r, failures)
		return
	}
	if err := s.fs.Rm(ctx, cp.source.Path, storage.RmOptions{Recursive: true, Force: true}); err != nil {
		s.handleFsError(log, w, err)
		return
	}
	if cp.successCode == http.StatusCreated {
		w.Header().Set(net.HeaderLocation, locationURI(r, cp.destination))
	}
	log.Debug().Str("src", cp.source.Path).Str("dst", cp.destination).Msg("move done")
	w.WriteHeader(cp.successCode)
}
