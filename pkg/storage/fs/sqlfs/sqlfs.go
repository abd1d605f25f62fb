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

// Package sqlfs implements the storage.FS contract on top of a single
// relational table. Files and directories share one schema: every row is
// keyed by a normalized path, a trailing slash marks an explicit directory
// row, and directories that were never mkdir'ed are inferred from the path
// prefixes of their descendants. The table is the source of truth; the
// filesystem holds no in-memory indexes or caches.
package sqlfs

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/YieldRay/wedbav/pkg/storage"
	"github.com/YieldRay/wedbav/pkg/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// DefaultTable is the table name used when the configuration does not
// override it.
const DefaultTable = "filesystem"

// Options configure the filesystem.
type Options struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

type sqlfs struct {
	db     *sql.DB
	d      *dialect
	table  string
	ownsDB bool
}

// NewFromMap builds a filesystem from a raw configuration map, the way
// service registries pass options around.
func NewFromMap(m map[string]interface{}) (storage.FS, error) {
	opts := &Options{}
	if err := mapstructure.Decode(m, opts); err != nil {
		return nil, errors.Wrap(err, "sqlfs: error decoding options")
	}
	return New(opts)
}

// New opens the database described by opts and bootstraps the schema.
func New(opts *Options) (storage.FS, error) {
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "sqlfs: error connecting to the database")
	}
	if opts.Driver == "sqlite3" {
		// sqlite serializes writers anyway and in-memory databases are
		// per-connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetConnMaxLifetime(time.Minute * 3)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "sqlfs: error connecting to the database")
	}
	fs, err := NewWithDB(opts.Driver, opts.Table, db)
	if err != nil {
		return nil, err
	}
	fs.(*sqlfs).ownsDB = true
	return fs, nil
}

// NewWithDB builds a filesystem over an existing connection pool. The caller
// keeps ownership of db.
func NewWithDB(driver, table string, db *sql.DB) (storage.FS, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if table == "" {
		table = DefaultTable
	}
	if err := validTableName(table); err != nil {
		return nil, err
	}
	fs := &sqlfs{db: db, d: d, table: table}
	if _, err := db.Exec(d.createTable(table)); err != nil {
		return nil, errors.Wrap(err, "sqlfs: error bootstrapping schema")
	}
	return fs, nil
}

func (fs *sqlfs) Shutdown(ctx context.Context) error {
	if fs.ownsDB {
		return fs.db.Close()
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Etag computes the strong entity tag of a content blob: the hex sha-256,
// quoted.
func Etag(content []byte) string {
	sum := sha256.Sum256(content)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// prefixPattern returns the LIKE pattern matching every row below the given
// directory key.
func prefixPattern(dirKey string) string {
	return utils.EscapeLike(dirKey) + "%"
}

// Stat resolves a path to a file, an explicit directory or an implicit one,
// in that order.
func (fs *sqlfs) Stat(ctx context.Context, p string) (*storage.FileInfo, error) {
	k := utils.NormalizePath(p)
	if k == "/" {
		return fs.statDir(ctx, "/")
	}
	fi, err := fs.statFile(ctx, k)
	if err == nil {
		return fi, nil
	}
	if !errtypes.IsNotFound(err) {
		return nil, err
	}
	return fs.statDir(ctx, k+"/")
}

func (fs *sqlfs) statFile(ctx context.Context, k string) (*storage.FileInfo, error) {
	var createdAt, modifiedAt, size int64
	var etag string
	err := fs.db.QueryRowContext(ctx,
		fs.d.q("SELECT created_at, modified_at, size, etag FROM "+fs.table+" WHERE path = ?"), k).
		Scan(&createdAt, &modifiedAt, &size, &etag)
	switch {
	case err == sql.ErrNoRows:
		return nil, errtypes.New(errtypes.ENOENT, "stat", k)
	case err != nil:
		return nil, errtypes.Wrap(err, errtypes.EINVAL, "stat", k)
	}
	return &storage.FileInfo{
		Path:  k,
		Size:  size,
		MTime: millisToTime(modifiedAt),
		CTime: millisToTime(createdAt),
		ETag:  etag,
	}, nil
}

// statDir takes a directory key (trailing slash, or "/" for the root). An
// explicit row wins; otherwise the directory is implied by any descendant
// row and its times are aggregated over them.
func (fs *sqlfs) statDir(ctx context.Context, dk string) (*storage.FileInfo, error) {
	display := strings.TrimSuffix(dk, "/")
	if display == "" {
		display = "/"
	}
	if dk != "/" {
		var createdAt, modifiedAt int64
		err := fs.db.QueryRowContext(ctx,
			fs.d.q("SELECT created_at, modified_at FROM "+fs.table+" WHERE path = ?"), dk).
			Scan(&createdAt, &modifiedAt)
		switch {
		case err == nil:
			return &storage.FileInfo{
				Path:  display,
				Dir:   true,
				MTime: millisToTime(modifiedAt),
				CTime: millisToTime(createdAt),
			}, nil
		case err != sql.ErrNoRows:
			return nil, errtypes.Wrap(err, errtypes.EINVAL, "stat", display)
		}
	}
	var count int64
	var minCreated, maxModified sql.NullInt64
	err := fs.db.QueryRowContext(ctx,
		fs.d.q("SELECT COUNT(*), MIN(created_at), MAX(modified_at) FROM "+fs.table+
			" WHERE path LIKE ? "+fs.d.escapeClause+" AND path <> ?"),
		prefixPattern(dk), dk).
		Scan(&count, &minCreated, &maxModified)
	if err != nil {
		return nil, errtypes.Wrap(err, errtypes.EINVAL, "stat", display)
	}
	if count == 0 {
		return nil, errtypes.New(errtypes.ENOENT, "stat", display)
	}
	return &storage.FileInfo{
		Path:  display,
		Dir:   true,
		MTime: millisToTime(maxModified.Int64),
		CTime: millisToTime(minCreated.Int64),
	}, nil
}

func (fs *sqlfs) Access(ctx context.Context, p string) error {
	_, err := fs.Stat(ctx, p)
	return err
}

// Mkdir persists one explicit directory row. Intermediate directories stay
// implicit; recursive only relaxes the parent check.
func (fs *sqlfs) Mkdir(ctx context.Context, p string, opts storage.MkdirOptions) (string, error) {
	k := utils.NormalizePath(p)
	if k == "/" {
		return "", errtypes.New(errtypes.EEXIST, "mkdir", p)
	}
	if _, err := fs.Stat(ctx, k); err == nil {
		return "", errtypes.New(errtypes.EEXIST, "mkdir", k)
	} else if !errtypes.IsNotFound(err) {
		return "", err
	}
	if !opts.Recursive {
		parent := path.Dir(k)
		if parent != "/" {
			fi, err := fs.Stat(ctx, parent)
			if err != nil {
				return "", errtypes.New(errtypes.ENOENT, "mkdir", k)
			}
			if !fi.Dir {
				return "", errtypes.New(errtypes.ENOTDIR, "mkdir", k)
			}
		}
	}
	now := nowMillis()
	_, err := fs.db.ExecContext(ctx,
		fs.d.q("INSERT INTO "+fs.table+" (path, created_at, modified_at, size, etag, content) VALUES (?, ?, ?, 0, '', NULL)"),
		k+"/", now, now)
	if err != nil {
		return "", errtypes.Wrap(err, errtypes.EINVAL, "mkdir", k)
	}
	if opts.Recursive {
		return k, nil
	}
	return "", nil
}

// WriteFile upserts the file row keyed by the normalized path. Writing never
// requires the parents to exist; the directories appear implicitly.
func (fs *sqlfs) WriteFile(ctx context.Context, p string, data []byte) error {
	k := utils.NormalizePath(p)
	if k == "/" || utils.IsDirKey(p) {
		return errtypes.New(errtypes.EISDIR, "open", k)
	}
	var one int
	err := fs.db.QueryRowContext(ctx,
		fs.d.q("SELECT 1 FROM "+fs.table+" WHERE path = ?"), k+"/").Scan(&one)
	if err == nil {
		return errtypes.New(errtypes.EISDIR, "open", k)
	}
	if err != sql.ErrNoRows {
		return errtypes.Wrap(err, errtypes.EINVAL, "open", k)
	}
	now := nowMillis()
	_, err = fs.db.ExecContext(ctx, fs.d.q(fs.d.upsert(fs.table, false)),
		k, now, now, int64(len(data)), Etag(data), data)
	if err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "write", k)
	}
	return nil
}

func (fs *sqlfs) ReadFile(ctx context.Context, p string) ([]byte, error) {
	k := utils.NormalizePath(p)
	var content []byte
	err := fs.db.QueryRowContext(ctx,
		fs.d.q("SELECT content FROM "+fs.table+" WHERE path = ?"), k).Scan(&content)
	switch {
	case err == sql.ErrNoRows:
		return nil, errtypes.New(errtypes.ENOENT, "open", k)
	case err != nil:
		return nil, errtypes.Wrap(err, errtypes.EINVAL, "read", k)
	}
	if content == nil {
		// a NULL blob is a directory row that sneaked in under a file key
		return nil, errtypes.New(errtypes.ENOENT, "read", k)
	}
	return content, nil
}

// ReadDir lists a directory. Immediate children are derived from the
// relative paths of every row below the directory key; with Recursive every
// descendant file plus every directory segment seen on the way is returned.
// Directories come first, then files, both sorted lexicographically.
func (fs *sqlfs) ReadDir(ctx context.Context, p string, opts storage.ReadDirOptions) ([]*storage.DirEntry, error) {
	k := utils.NormalizePath(p)
	dk := utils.DirKey(k)
	rows, err := fs.db.QueryContext(ctx,
		fs.d.q("SELECT path FROM "+fs.table+" WHERE path LIKE ? "+fs.d.escapeClause+" ORDER BY path"),
		prefixPattern(dk))
	if err != nil {
		return nil, errtypes.Wrap(err, errtypes.EINVAL, "scandir", k)
	}
	defer rows.Close()

	dirSet := map[string]bool{}
	var files []string
	for rows.Next() {
		var rowPath string
		if err := rows.Scan(&rowPath); err != nil {
			return nil, errtypes.Wrap(err, errtypes.EINVAL, "scandir", k)
		}
		rel := strings.TrimPrefix(rowPath, dk)
		if rel == "" {
			continue // the directory row itself
		}
		explicitDir := strings.HasSuffix(rel, "/")
		rel = strings.TrimSuffix(rel, "/")
		segs := strings.Split(rel, "/")
		if opts.Recursive {
			for i := 1; i < len(segs); i++ {
				dirSet[strings.Join(segs[:i], "/")] = true
			}
			if explicitDir {
				dirSet[rel] = true
			} else {
				files = append(files, rel)
			}
			continue
		}
		if len(segs) > 1 {
			dirSet[segs[0]] = true
		} else if explicitDir {
			dirSet[rel] = true
		} else {
			files = append(files, rel)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errtypes.Wrap(err, errtypes.EINVAL, "scandir", k)
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	sort.Strings(files)

	entries := make([]*storage.DirEntry, 0, len(dirs)+len(files))
	for _, rel := range dirs {
		entries = append(entries, relToEntry(k, rel, true))
	}
	for _, rel := range files {
		entries = append(entries, relToEntry(k, rel, false))
	}
	return entries, nil
}

func relToEntry(dir, rel string, isDir bool) *storage.DirEntry {
	parent := dir
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		parent = utils.NormalizePath(dir + "/" + rel[:i])
		rel = rel[i+1:]
	}
	return &storage.DirEntry{Name: rel, Parent: parent, Dir: isDir}
}

// Rename moves a file or a directory tree. Directory renames rewrite every
// descendant row inside one transaction but are not atomic towards
// concurrent readers, which may observe intermediate states.
func (fs *sqlfs) Rename(ctx context.Context, oldPath, newPath string) error {
	from := utils.NormalizePath(oldPath)
	to := utils.NormalizePath(newPath)
	if from == "/" || to == "/" {
		return errtypes.New(errtypes.EINVAL, "rename", from)
	}
	srcFi, err := fs.Stat(ctx, from)
	if err != nil {
		return err
	}
	now := nowMillis()

	if srcFi.IsFile() {
		dstFi, err := fs.Stat(ctx, to)
		if err == nil {
			if dstFi.Dir {
				return errtypes.New(errtypes.EISDIR, "rename", to)
			}
			return errtypes.New(errtypes.EEXIST, "rename", to)
		}
		if !errtypes.IsNotFound(err) {
			return err
		}
		_, err = fs.db.ExecContext(ctx,
			fs.d.q("UPDATE "+fs.table+" SET path = ?, modified_at = ? WHERE path = ?"),
			to, now, from)
		if err != nil {
			return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
		}
		return nil
	}

	dstFi, err := fs.Stat(ctx, to)
	if err == nil {
		if dstFi.Dir {
			return errtypes.New(errtypes.EEXIST, "rename", to)
		}
		return errtypes.New(errtypes.ENOTDIR, "rename", to)
	}
	if !errtypes.IsNotFound(err) {
		return err
	}

	tx, err := fs.db.BeginTx(ctx, nil)
	if err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
	}
	defer tx.Rollback()

	// the explicit directory row, when present
	if _, err = tx.ExecContext(ctx,
		fs.d.q("UPDATE "+fs.table+" SET path = ?, modified_at = ? WHERE path = ?"),
		to+"/", now, from+"/"); err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
	}

	rows, err := tx.QueryContext(ctx,
		fs.d.q("SELECT path FROM "+fs.table+" WHERE path LIKE ? "+fs.d.escapeClause),
		prefixPattern(from+"/"))
	if err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
	}
	var children []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
		}
		children = append(children, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
	}

	for _, child := range children {
		rewritten := to + "/" + strings.TrimPrefix(child, from+"/")
		if _, err = tx.ExecContext(ctx,
			fs.d.q("UPDATE "+fs.table+" SET path = ?, modified_at = ? WHERE path = ?"),
			rewritten, now, child); err != nil {
			return errtypes.Wrap(err, errtypes.EINVAL, "rename", child)
		}
	}
	if err := tx.Commit(); err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "rename", from)
	}
	return nil
}

// Rmdir removes a directory: its explicit row, and with Recursive everything
// below it.
func (fs *sqlfs) Rmdir(ctx context.Context, p string, opts storage.RmdirOptions) error {
	k := utils.NormalizePath(p)
	fi, err := fs.Stat(ctx, k)
	if err != nil {
		return err
	}
	if fi.IsFile() {
		return errtypes.New(errtypes.ENOTDIR, "rmdir", k)
	}
	dk := utils.DirKey(k)
	if !opts.Recursive {
		var count int64
		err := fs.db.QueryRowContext(ctx,
			fs.d.q("SELECT COUNT(*) FROM "+fs.table+" WHERE path LIKE ? "+fs.d.escapeClause+" AND path <> ?"),
			prefixPattern(dk), dk).Scan(&count)
		if err != nil {
			return errtypes.Wrap(err, errtypes.EINVAL, "rmdir", k)
		}
		if count > 0 {
			return errtypes.New(errtypes.ENOTEMPTY, "rmdir", k)
		}
		if _, err := fs.db.ExecContext(ctx,
			fs.d.q("DELETE FROM "+fs.table+" WHERE path = ?"), dk); err != nil {
			return errtypes.Wrap(err, errtypes.EINVAL, "rmdir", k)
		}
		return nil
	}
	if _, err := fs.db.ExecContext(ctx,
		fs.d.q("DELETE FROM "+fs.table+" WHERE path = ? OR path LIKE ? "+fs.d.escapeClause),
		dk, prefixPattern(dk)); err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "rmdir", k)
	}
	return nil
}

// Unlink deletes a file row. Paths spelled with a trailing slash are
// rejected, matching the POSIX call.
func (fs *sqlfs) Unlink(ctx context.Context, p string) error {
	if utils.IsDirKey(p) {
		return errtypes.New(errtypes.EISDIR, "unlink", p)
	}
	k := utils.NormalizePath(p)
	res, err := fs.db.ExecContext(ctx,
		fs.d.q("DELETE FROM "+fs.table+" WHERE path = ?"), k)
	if err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "unlink", k)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errtypes.New(errtypes.ENOENT, "unlink", k)
	}
	return nil
}

// Rm resolves the path and dispatches to Rmdir or Unlink. Force swallows
// ENOENT.
func (fs *sqlfs) Rm(ctx context.Context, p string, opts storage.RmOptions) error {
	fi, err := fs.Stat(ctx, p)
	if err != nil {
		if opts.Force && errtypes.IsNotFound(err) {
			return nil
		}
		return err
	}
	if fi.Dir {
		return fs.Rmdir(ctx, p, storage.RmdirOptions{Recursive: opts.Recursive})
	}
	return fs.Unlink(ctx, p)
}

// CopyFile duplicates a single file row under a new key with fresh
// timestamps. Directories are not copyable here; the protocol layer walks
// trees itself.
func (fs *sqlfs) CopyFile(ctx context.Context, src, dest string) error {
	if utils.IsDirKey(src) {
		return errtypes.New(errtypes.EINVAL, "copyfile", src)
	}
	if utils.IsDirKey(dest) {
		return errtypes.New(errtypes.EISDIR, "copyfile", dest)
	}
	from := utils.NormalizePath(src)
	to := utils.NormalizePath(dest)

	var size int64
	var etag string
	var content []byte
	err := fs.db.QueryRowContext(ctx,
		fs.d.q("SELECT size, etag, content FROM "+fs.table+" WHERE path = ?"), from).
		Scan(&size, &etag, &content)
	switch {
	case err == sql.ErrNoRows:
		return errtypes.New(errtypes.ENOENT, "copyfile", from)
	case err != nil:
		return errtypes.Wrap(err, errtypes.EINVAL, "copyfile", from)
	}

	if fi, err := fs.Stat(ctx, to); err == nil && fi.Dir {
		return errtypes.New(errtypes.EISDIR, "copyfile", to)
	} else if err != nil && !errtypes.IsNotFound(err) {
		return err
	}

	now := nowMillis()
	if _, err := fs.db.ExecContext(ctx, fs.d.q(fs.d.upsert(fs.table, true)),
		to, now, now, size, etag, content); err != nil {
		return errtypes.Wrap(err, errtypes.EINVAL, "copyfile", to)
	}
	return nil
}

var _ storage.FS = (*sqlfs)(nil)

var _ io.ReadCloser = (*reader)(nil)
