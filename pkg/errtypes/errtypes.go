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

// Package errtypes contains the engine-neutral error taxonomy of the virtual
// filesystem. It would have been nice to call this package errors but that
// clashes with github.com/pkg/errors.
package errtypes

import (
	"errors"
	"fmt"
)

// Code identifies the class of a filesystem error. The names follow the
// POSIX errno vocabulary so that callers can reason about failures without
// knowing which SQL engine sits underneath.
type Code string

const (
	// ENOENT means the path does not exist.
	ENOENT Code = "ENOENT"
	// EEXIST means the destination already exists.
	EEXIST Code = "EEXIST"
	// EISDIR means the path unexpectedly resolved to a directory.
	EISDIR Code = "EISDIR"
	// ENOTDIR means the path unexpectedly resolved to a file.
	ENOTDIR Code = "ENOTDIR"
	// ENOTEMPTY means a directory could not be removed because it has entries.
	ENOTEMPTY Code = "ENOTEMPTY"
	// EINVAL means the request was malformed.
	EINVAL Code = "EINVAL"
	// EPERM means the operation is not permitted.
	EPERM Code = "EPERM"
	// EACCES means access is denied.
	EACCES Code = "EACCES"
	// ENOSPC means the storage engine is out of space.
	ENOSPC Code = "ENOSPC"
	// EFBIG means the content exceeds what the engine can store.
	EFBIG Code = "EFBIG"
)

// FsError is the single error type surfaced by the virtual filesystem.
type FsError struct {
	Code    Code
	Syscall string
	Path    string
	Message string
	Err     error
}

func (e *FsError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	return fmt.Sprintf("%s: %s, %s '%s'", e.Code, msg, e.Syscall, e.Path)
}

// Unwrap exposes the underlying cause, if any.
func (e *FsError) Unwrap() error { return e.Err }

// New builds an FsError for the given code, syscall and path.
func New(code Code, syscall, path string) *FsError {
	return &FsError{Code: code, Syscall: syscall, Path: path, Message: messages[code]}
}

// Wrap builds an FsError that carries an underlying cause.
func Wrap(err error, code Code, syscall, path string) *FsError {
	return &FsError{Code: code, Syscall: syscall, Path: path, Message: messages[code], Err: err}
}

var messages = map[Code]string{
	ENOENT:    "no such file or directory",
	EEXIST:    "file already exists",
	EISDIR:    "illegal operation on a directory",
	ENOTDIR:   "not a directory",
	ENOTEMPTY: "directory not empty",
	EINVAL:    "invalid argument",
	EPERM:     "operation not permitted",
	EACCES:    "permission denied",
	ENOSPC:    "no space left on device",
	EFBIG:     "file too large",
}

// CodeOf returns the Code carried by err, or false if err is not an FsError.
func CodeOf(err error) (Code, bool) {
	var fse *FsError
	if errors.As(err, &fse) {
		return fse.Code, true
	}
	return "", false
}

// Is reports whether err is an FsError with the given code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNotFound reports whether err means the path does not exist.
func IsNotFound(err error) bool { return Is(err, ENOENT) }

// IsExist reports whether err means the destination already exists.
func IsExist(err error) bool { return Is(err, EEXIST) }
