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
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/YieldRay/wedbav/internal/http/services/webdav/net"
	"github.com/YieldRay/wedbav/internal/http/services/webdav/props"
	"github.com/YieldRay/wedbav/pkg/appctx"
	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/YieldRay/wedbav/pkg/storage"
	"github.com/YieldRay/wedbav/pkg/utils"
)

func (s *svc) handlePropfind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)
	fn := requestPath(r)

	depth, err := net.ParseDepth(r.Header.Get(net.HeaderDepth))
	if err != nil {
		log.Debug().Err(err).Msg("invalid depth header")
		w.WriteHeader(http.StatusBadRequest)
		m := fmt.Sprintf("invalid depth header value: %v", r.Header.Get(net.HeaderDepth))
		b, err := Marshal(exception{
			code:    SabredavBadRequest,
			message: m,
		})
		HandleWebdavError(log, w, b, err)
		return
	}

	infos, err := s.collectPropfindInfos(r, fn, depth)
	if err != nil {
		// an empty store has no root yet, an empty multistatus says so
		if fn == "/" && errtypes.IsNotFound(err) {
			infos = nil
		} else {
			s.handleFsError(log, w, err)
			return
		}
	}

	responses := make([]responseXML, 0, len(infos))
	for _, info := range infos {
		responses = append(responses, s.infoToResponse(info))
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

// collectPropfindInfos stats the target and, for a depth header other than 0,
// its immediate children. Children that vanish between the listing and the
// stat are skipped.
func (s *svc) collectPropfindInfos(r *http.Request, fn string, depth net.Depth) ([]*storage.FileInfo, error) {
	ctx := r.Context()
	log := appctx.GetLogger(ctx)

	self, err := s.fs.Stat(ctx, fn)
	if err != nil {
		return nil, err
	}
	infos := []*storage.FileInfo{self}
	if depth == net.DepthZero || !self.IsDirectory() {
		return infos, nil
	}

	entries, err := s.fs.ReadDir(ctx, fn, storage.ReadDirOptions{})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		child, err := s.fs.Stat(ctx, path.Join(fn, e.Name))
		if err != nil {
			log.Debug().Err(err).Str("name", e.Name).Msg("skipping unstattable entry")
			continue
		}
		infos = append(infos, child)
	}
	return infos, nil
}

func (s *svc) infoToResponse(info *storage.FileInfo) responseXML {
	ref := info.Path
	if info.IsDirectory() && ref != "/" {
		ref += "/"
	}
	response := responseXML{
		Href: utils.EncodePath(ref),
		Propstat: []propstatXML{{
			Status: "HTTP/1.1 200 OK",
			Prop:   []*props.PropertyXML{},
		}},
	}

	name := path.Base(info.Path)
	if info.Path == "/" {
		name = "/"
	}
	response.Propstat[0].Prop = append(response.Propstat[0].Prop,
		props.NewProp("d:displayname", name),
		props.NewProp("d:getlastmodified", info.MTime.UTC().Format(net.RFC1123)),
	)
	if info.IsDirectory() {
		response.Propstat[0].Prop = append(response.Propstat[0].Prop,
			props.NewPropRaw("d:resourcetype", "<d:collection/>"),
			props.NewProp("d:getcontenttype", "httpd/unix-directory"),
			props.NewProp("d:getcontentlength", "0"),
		)
	} else {
		response.Propstat[0].Prop = append(response.Propstat[0].Prop,
			props.NewProp("d:resourcetype", ""),
			props.NewProp("d:getcontenttype", "application/octet-stream"),
			props.NewProp("d:getcontentlength", strconv.FormatInt(info.Size, 10)),
			props.NewProp("d:getetag", info.ETag),
		)
	}
	return response
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_multistatus
type multistatusXML struct {
	XMLName   xml.Name      `xml:"d:multistatus"`
	XmlnsD    string        `xml:"xmlns:d,attr"`
	Responses []responseXML `xml:"d:response"`
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_response
type responseXML struct {
	XMLName             xml.Name      `xml:"d:response"`
	Href                string        `xml:"d:href"`
	Propstat            []propstatXML `xml:"d:propstat,omitempty"`
	Status              string        `xml:"d:status,omitempty"`
	Error               *errorXML     `xml:"d:error,omitempty"`
	ResponseDescription string        `xml:"d:responsedescription,omitempty"`
}

// http://www.webdav.org/specs/rfc4918.html#ELEMENT_propstat
type propstatXML struct {
	Prop                []*props.PropertyXML `xml:"d:prop>_ignored_"`
	Status              string               `xml:"d:status"`
	Error               *errorXML            `xml:"d:error,omitempty"`
	ResponseDescription string               `xml:"d:responsedescription,omitempty"`
}
