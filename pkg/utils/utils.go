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

// Package utils holds path normalization and encoding helpers. Every SQL
// parameter of the virtual filesystem derives from a path that went through
// NormalizePath, and every LIKE pattern through EscapeLike; the two functions
// are the trust boundary between user input and the table.
package utils

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// NormalizePath canonicalizes a user-supplied path: it always begins with a
// slash, double slashes are collapsed, "." and ".." are resolved, and the
// trailing slash is stripped except for the root. Normalization is
// idempotent.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// DirKey returns the table key of the explicit directory row for a
// normalized path. The root key is "/".
func DirKey(p string) string {
	if p == "/" {
		return "/"
	}
	return p + "/"
}

// IsDirKey reports whether the raw path names a directory, i.e. it carries a
// trailing slash. The root counts as a directory.
func IsDirKey(p string) bool {
	return p == "/" || strings.HasSuffix(p, "/")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE wildcards and the escape character itself so
// that the input matches literally. Statements using the result must carry
// ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// DecodeURIPath percent-decodes an URI path and returns the input unchanged
// when it is not valid percent-encoding. WebDAV clients are sloppy here and
// a hard failure would turn a bad escape into a 500.
func DecodeURIPath(p string) string {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return decoded
}

var hrefre = regexp.MustCompile(`([^A-Za-z0-9_\-.~()/:@!$])`)

// EncodePath percent-encodes the path of a URL for use in an href.
// Slashes (/) are treated as path separators.
// Ported from https://github.com/sabre-io/http/blob/bb27d1a8c92217b34e778ee09dcf79d9a2936e84/lib/functions.php#L369-L379
func EncodePath(p string) string {
	return replaceAllStringSubmatchFunc(hrefre, p, func(groups []string) string {
		b := groups[1]
		var sb strings.Builder
		for i := 0; i < len(b); i++ {
			sb.WriteString(fmt.Sprintf("%%%x", b[i]))
		}
		return sb.String()
	})
}

// replaceAllStringSubmatchFunc is taken from 'Go: Replace String with Regular Expression Callback'
// see: https://elliotchance.medium.com/go-replace-string-with-regular-expression-callback-f89948bad0bb
func replaceAllStringSubmatchFunc(re *regexp.Regexp, str string, repl func([]string) string) string {
	result := ""
	lastIndex := 0
	for _, v := range re.FindAllSubmatchIndex([]byte(str), -1) {
		groups := []string{}
		for i := 0; i < len(v); i += 2 {
			groups = append(groups, str[v[i]:v[i+1]])
		}
		result += str[lastIndex:v[0]] + repl(groups)
		lastIndex = v[1]
	}
	return result + str[lastIndex:]
}
