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
	"context"
	"database/sql"
	"io"

	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/YieldRay/wedbav/pkg/utils"
)

// MaxChunkSize caps how many content bytes a single substr round-trip may
// fetch. 1 MiB bounds both per-chunk latency and memory.
const MaxChunkSize = 1 << 20

// CreateReadStream returns a finite, non-restartable byte stream over the
// stored content. Each Read issues one bounded substr query; the stream ends
// when a query comes back empty. The consumer drives the chunk size through
// the length of its buffer.
func (fs *sqlfs) CreateReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	k := utils.NormalizePath(p)
	var one int
	err := fs.db.QueryRowContext(ctx,
		fs.d.q("SELECT 1 FROM "+fs.table+" WHERE path = ? AND content IS NOT NULL"), k).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return nil, errtypes.New(errtypes.ENOENT, "open", k)
	case err != nil:
		return nil, errtypes.Wrap(err, errtypes.EINVAL, "open", k)
	}
	return &reader{ctx: ctx, fs: fs, path: k, offset: 1}, nil
}

type reader struct {
	ctx  context.Context
	fs   *sqlfs
	path string
	// substr offsets are 1-indexed
	offset int64
	err    error
}

func (r *reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := len(p)
	if n > MaxChunkSize {
		n = MaxChunkSize
	}
	var chunk []byte
	err := r.fs.db.QueryRowContext(r.ctx,
		r.fs.d.q("SELECT substr(content, ?, ?) FROM "+r.fs.table+" WHERE path = ?"),
		r.offset, n, r.path).Scan(&chunk)
	switch {
	case err == sql.ErrNoRows:
		// the row disappeared mid-stream; the sequence is finite, so end it
		r.err = io.EOF
		return 0, io.EOF
	case err != nil:
		r.err = errtypes.Wrap(err, errtypes.EINVAL, "read", r.path)
		return 0, r.err
	}
	if len(chunk) == 0 {
		r.err = io.EOF
		return 0, io.EOF
	}
	copy(p, chunk)
	r.offset += int64(len(chunk))
	return len(chunk), nil
}

func (r *reader) Close() error {
	if r.err == nil {
		r.err = errStreamClosed
	}
	return nil
}

var errStreamClosed = errtypes.New(errtypes.EINVAL, "read", "stream closed")
