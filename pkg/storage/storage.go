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

// Package storage defines the virtual filesystem contract consumed by the
// WebDAV protocol layer. The contract emulates POSIX semantics over whatever
// the implementation stores rows in; the HTTP layer never touches the table
// directly and only ever holds path strings.
package storage

import (
	"context"
	"io"
	"time"
)

// FS is the interface to implement access to the storage. All paths are
// normalized on entry; errors carry an errtypes.Code.
type FS interface {
	Stat(ctx context.Context, p string) (*FileInfo, error)
	Access(ctx context.Context, p string) error
	Mkdir(ctx context.Context, p string, opts MkdirOptions) (string, error)
	WriteFile(ctx context.Context, p string, data []byte) error
	ReadFile(ctx context.Context, p string) ([]byte, error)
	CreateReadStream(ctx context.Context, p string) (io.ReadCloser, error)
	ReadDir(ctx context.Context, p string, opts ReadDirOptions) ([]*DirEntry, error)
	Rename(ctx context.Context, oldPath, newPath string) error
	Rmdir(ctx context.Context, p string, opts RmdirOptions) error
	Unlink(ctx context.Context, p string) error
	Rm(ctx context.Context, p string, opts RmOptions) error
	CopyFile(ctx context.Context, src, dest string) error
	Shutdown(ctx context.Context) error
}

// FileInfo describes a file, an explicit directory row or an implicit
// directory derived from descendant rows.
type FileInfo struct {
	// Path is the normalized path, without trailing slash.
	Path string
	// Dir reports whether the entry is a directory.
	Dir bool
	// Size is the byte length of the content; 0 for directories.
	Size int64
	// MTime is the last modification time. For implicit directories it is
	// the max modification time over all descendants.
	MTime time.Time
	// CTime is the creation (birth) time. For implicit directories it is
	// the min creation time over all descendants.
	CTime time.Time
	// ETag is the quoted hex sha-256 of the content; empty for directories.
	ETag string
}

// IsFile reports whether the entry is a regular file.
func (fi *FileInfo) IsFile() bool { return !fi.Dir }

// IsDirectory reports whether the entry is a directory.
func (fi *FileInfo) IsDirectory() bool { return fi.Dir }

// DirEntry is one entry returned by ReadDir.
type DirEntry struct {
	// Name is the base name of the entry.
	Name string
	// Parent is the absolute path of the directory containing the entry.
	Parent string
	// Dir reports whether the entry is a directory.
	Dir bool
}

// IsFile reports whether the entry is a regular file.
func (e *DirEntry) IsFile() bool { return !e.Dir }

// IsDirectory reports whether the entry is a directory.
func (e *DirEntry) IsDirectory() bool { return e.Dir }

// MkdirOptions control Mkdir.
type MkdirOptions struct {
	// Recursive makes missing parents acceptable; they stay implicit.
	Recursive bool
}

// ReadDirOptions control ReadDir.
type ReadDirOptions struct {
	// Recursive enumerates every descendant instead of only direct children.
	Recursive bool
}

// RmdirOptions control Rmdir.
type RmdirOptions struct {
	// Recursive removes the directory contents as well.
	Recursive bool
}

// RmOptions control Rm.
type RmOptions struct {
	Recursive bool
	// Force swallows ENOENT.
	Force bool
}
