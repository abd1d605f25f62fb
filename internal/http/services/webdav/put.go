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
	"io"
	"net/http"

	"github.com/YieldRay/wedbav/pkg/appctx"
)

// handlePut stores the request body under the request path. An existing file
// is replaced, missing parent directories become implicit.
func (s *svc) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	fn := requestPath(r)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug().Err(err).Msg("error reading request body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.fs.WriteFile(ctx, fn, data); err != nil {
		s.handleFsError(log, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
