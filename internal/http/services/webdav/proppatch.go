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
)

// handleProppatch rejects property updates. The table has no column for
// dead properties, so the method is not implemented rather than silently
// dropping the values.
func (s *svc) handleProppatch(w http.ResponseWriter, r *http.Request) {
	log := appctx.GetLogger(r.Context())
	log.Debug().Msg("proppatch not implemented")
	w.WriteHeader(http.StatusNotImplemented)
}
