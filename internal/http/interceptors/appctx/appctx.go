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

// Package appctx attaches a request-scoped logger to the request context.
package appctx

import (
	"net/http"

	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New returns an HTTP middleware that stores a logger tagged with a request
// id in the context.
func New(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handler(log, next)
	}
}

func handler(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		sub := log.With().Str("requestid", requestID).Logger()
		ctx := appctx.WithLogger(r.Context(), &sub)
		ctx = appctx.WithRequestID(ctx, requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
