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
	"encoding/xml"
	"net/http"

	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/rs/zerolog"
)

type code int

const (
	// SabredavBadRequest maps to HTTP 400
	SabredavBadRequest code = iota
	// SabredavMethodNotAllowed maps to HTTP 405
	SabredavMethodNotAllowed
	// SabredavNotAuthenticated maps to HTTP 401
	SabredavNotAuthenticated
	// SabredavPreconditionFailed maps to HTTP 412
	SabredavPreconditionFailed
	// SabredavPermissionDenied maps to HTTP 403
	SabredavPermissionDenied
	// SabredavNotFound maps to HTTP 404
	SabredavNotFound
	// SabredavConflict maps to HTTP 409
	SabredavConflict
)

var codesEnum = []string{
	"Sabre\\DAV\\Exception\\BadRequest",
	"Sabre\\DAV\\Exception\\MethodNotAllowed",
	"Sabre\\DAV\\Exception\\NotAuthenticated",
	"Sabre\\DAV\\Exception\\PreconditionFailed",
	"Sabre\\DAV\\Exception\\PermissionDenied",
	"Sabre\\DAV\\Exception\\NotFound",
	"Sabre\\DAV\\Exception\\Conflict",
}

type exception struct {
	code    code
	message string
}

// Marshal just calls the xml marshaller for a given exception.
func Marshal(e exception) ([]byte, error) {
	return xml.Marshal(&errorXML{
		Xmlnsd:    "DAV",
		Xmlnss:    "http://sabredav.org/ns",
		Exception: codesEnum[e.code],
		Message:   e.message,
	})
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_error
type errorXML struct {
	XMLName   xml.Name `xml:"d:error"`
	Xmlnsd    string   `xml:"xmlns:d,attr"`
	Xmlnss    string   `xml:"xmlns:s,attr"`
	Exception string   `xml:"s:exception"`
	Message   string   `xml:"s:message"`
	InnerXML  []byte   `xml:",innerxml"`
}

// HandleWebdavError writes an error body, if the marshalling succeeded.
func HandleWebdavError(log *zerolog.Logger, w http.ResponseWriter, body []byte, err error) {
	if err != nil {
		log.Error().Msgf("error marshalling xml response: %s", err.Error())
		return
	}
	if _, err = w.Write(body); err != nil {
		log.Error().Msgf("error writing response: %s", err.Error())
	}
}

// statusForError maps the filesystem error taxonomy onto WebDAV status
// codes. EEXIST surfaces as 412 because the only way it reaches a client is
// a failed overwrite precondition.
func statusForError(err error) int {
	c, ok := errtypes.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch c {
	case errtypes.ENOENT:
		return http.StatusNotFound
	case errtypes.EEXIST:
		return http.StatusPreconditionFailed
	case errtypes.EISDIR, errtypes.ENOTDIR, errtypes.ENOTEMPTY:
		return http.StatusConflict
	case errtypes.EINVAL:
		return http.StatusBadRequest
	case errtypes.EACCES, errtypes.EPERM:
		return http.StatusForbidden
	case errtypes.ENOSPC, errtypes.EFBIG:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// handleFsError logs the error and writes the mapped status with a sabredav
// style body.
func (s *svc) handleFsError(log *zerolog.Logger, w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("filesystem request failed")
	} else {
		log.Debug().Err(err).Msg("filesystem request failed")
	}
	w.WriteHeader(status)
	var c code
	switch status {
	case http.StatusNotFound:
		c = SabredavNotFound
	case http.StatusForbidden:
		c = SabredavPermissionDenied
	case http.StatusPreconditionFailed:
		c = SabredavPreconditionFailed
	case http.StatusConflict:
		c = SabredavConflict
	default:
		c = SabredavBadRequest
	}
	b, merr := Marshal(exception{code: c, message: err.Error()})
	HandleWebdavError(log, w, b, merr)
}
