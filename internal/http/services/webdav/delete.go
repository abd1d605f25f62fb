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

	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/storage"
)

// handleDelete removes the resource and everything below it. A missing
// target still answers 204, DELETE is idempotent here.
func (s *svc) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	fn := requestPath(r)

	if err := s.fs.Rm(ctx, fn, storage.RmOptions{Recursive: true, Force: true}); err != nil {
		s.handleFsError(log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
