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

package sqlfs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// The filesystem only needs a small portable SQL subset: CREATE TABLE IF NOT
// EXISTS, a keyed upsert, SELECT by path and by escaped LIKE prefix, MIN/MAX
// aggregates and substr over the content column. dialect holds the few spots
// where the engines disagree.
type dialect struct {
	name string
	// column type of the content blob
	blobType string
	// column type of the path key; mysql cannot index a 4096 char utf8mb4
	// column, so the key is capped there
	pathType string
	// escape clause for LIKE patterns produced by utils.EscapeLike. mysql
	// parses backslashes inside string literals, hence the doubling.
	escapeClause string
	// postgres wants $1..$n instead of ?
	numberedArgs bool
}

func dialectFor(driver string) (*dialect, error) {
	switch driver {
	case "sqlite3":
		return &dialect{
			name:         driver,
			blobType:     "BLOB",
			pathType:     "TEXT",
			escapeClause: `ESCAPE '\'`,
		}, nil
	case "mysql":
		return &dialect{
			name:         driver,
			blobType:     "LONGBLOB",
			pathType:     "VARCHAR(768)",
			escapeClause: `ESCAPE '\\'`,
		}, nil
	case "postgres":
		return &dialect{
			name:         driver,
			blobType:     "BYTEA",
			pathType:     "TEXT",
			escapeClause: `ESCAPE '\'`,
			numberedArgs: true,
		}, nil
	default:
		return nil, errors.Errorf("sqlfs: unsupported driver %q", driver)
	}
}

var identre = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validTableName(name string) error {
	if !identre.MatchString(name) {
		return errors.Errorf("sqlfs: invalid table name %q", name)
	}
	return nil
}

// q rewrites ? placeholders to $1..$n when the engine requires it. Queries
// in this package never put ? inside literals, so a plain scan is enough.
func (d *dialect) q(query string) string {
	if !d.numberedArgs {
		return query
	}
	var sb strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (d *dialect) createTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	path %s PRIMARY KEY,
	created_at BIGINT NOT NULL,
	modified_at BIGINT NOT NULL,
	size BIGINT NOT NULL DEFAULT 0,
	etag VARCHAR(68) NOT NULL DEFAULT '',
	content %s,
	meta TEXT
)`, table, d.pathType, d.blobType)
}

// upsert returns the INSERT ... ON CONFLICT statement used by WriteFile and
// CopyFile. Both update content, size, modified_at and etag on conflict;
// CopyFile additionally refreshes created_at.
func (d *dialect) upsert(table string, refreshCreated bool) string {
	insert := fmt.Sprintf(
		"INSERT INTO %s (path, created_at, modified_at, size, etag, content) VALUES (?, ?, ?, ?, ?, ?)",
		table)
	cols := []string{"modified_at", "size", "etag", "content"}
	if refreshCreated {
		cols = append([]string{"created_at"}, cols...)
	}
	var updates []string
	if d.name == "mysql" {
		for _, c := range cols {
			updates = append(updates, c+" = VALUES("+c+")")
		}
		return insert + " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	}
	for _, c := range cols {
		updates = append(updates, c+" = excluded."+c)
	}
	return insert + " ON CONFLICT (path) DO UPDATE SET " + strings.Join(updates, ", ")
}
