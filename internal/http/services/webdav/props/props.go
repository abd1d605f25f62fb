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

// Package props renders DAV resource properties.
package props

import (
	"bytes"
	"encoding/xml"
)

// PropertyXML represents a single DAV resource property as defined in RFC 4918.
// http://www.webdav.org/specs/rfc4918.html#data.model.for.resource.properties
type PropertyXML struct {
	// XMLName is the fully qualified name that identifies this property.
	XMLName xml.Name

	// InnerXML contains the XML representation of the property value.
	// See http://www.webdav.org/specs/rfc4918.html#property_values
	//
	// Property values of complex type or mixed-content must be
	// self-contained with according XML namespace declarations and must
	// not rely on declarations in the scope of the document.
	InnerXML []byte `xml:",innerxml"`
}

func xmlEscaped(val string) []byte {
	buf := new(bytes.Buffer)
	xml.Escape(buf, []byte(val))
	return buf.Bytes()
}

// NewProp returns a PropertyXML with the value xml-escaped.
func NewProp(key, val string) *PropertyXML {
	return &PropertyXML{
		XMLName:  xml.Name{Space: "", Local: key},
		InnerXML: xmlEscaped(val),
	}
}

// NewPropRaw returns a PropertyXML carrying the value verbatim, for values
// that are themselves XML fragments like <d:collection/>.
func NewPropRaw(key, val string) *PropertyXML {
	return &PropertyXML{
		XMLName:  xml.Name{Space: "", Local: key},
		InnerXML: []byte(val),
	}
}
