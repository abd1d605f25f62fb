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
	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/YieldRay/wedbav/pkg/storage"
)

// handleMkcol creates an explicit collection. Request bodies are not
// understood (RFC 4918 section 9.3), an existing resource is a 405.
func (s *svc) handleMkcol(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	fn := requestPath(r)

	if r.ContentLength > 0 {
		log.Debug().Msg("rejecting MKCOL with body")
		w.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}

	if _, err := s.fs.Mkdir(ctx, fn, storage.MkdirOptions{Recursive: true}); err != nil {
		if errtypes.IsExist(err) {
			w.Header().Set(net.HeaderAllow, methodsAllowed)
			w.WriteHeader(http.StatusMethodNotAllowed)
			b, err := Marshal(exception{
				code:    SabredavMethodNotAllowed,
				message: "The resource you tried to create already exists",
			})
			HandleWebdavError(log, w, b, err)
			return
		}
		s.handleFsError(log, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
