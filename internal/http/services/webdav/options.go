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
)

// handleOptions advertises the supported method set and DAV compliance
// class. Locking is not implemented, so class 1 only.
func (s *svc) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(net.HeaderAllow, methodsAllowed)
	w.WriteHeader(http.StatusOK)
}
