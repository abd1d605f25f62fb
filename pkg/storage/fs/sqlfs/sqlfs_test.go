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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YieldRay/wedbav/pkg/errtypes"
	"github.com/YieldRay/wedbav/pkg/storage"
)

func newTestFS(t *testing.T) storage.FS {
	t.Helper()
	fs, err := New(&Options{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Shutdown(context.Background()) })
	return fs
}

func TestWriteReadStat(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()
	body := []byte("hi")

	require.NoError(t, fs.WriteFile(ctx, "/hello.txt", body))

	got, err := fs.ReadFile(ctx, "/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	fi, err := fs.Stat(ctx, "/hello.txt")
	require.NoError(t, err)
	assert.True(t, fi.IsFile())
	assert.False(t, fi.IsDirectory())
	assert.EqualValues(t, len(body), fi.Size)

	sum := sha256.Sum256(body)
	assert.Equal(t, `"`+hex.EncodeToString(sum[:])+`"`, fi.ETag)
}

func TestWriteFileOverwriteKeepsBirthtime(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("one")))
	first, err := fs.Stat(ctx, "/f")
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("two!")))
	second, err := fs.Stat(ctx, "/f")
	require.NoError(t, err)

	assert.Equal(t, first.CTime, second.CTime)
	assert.EqualValues(t, 4, second.Size)
}

func TestWriteFileIntoExplicitDir(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	_, err := fs.Mkdir(ctx, "/d", storage.MkdirOptions{})
	require.NoError(t, err)

	err = fs.WriteFile(ctx, "/d", []byte("x"))
	assert.True(t, errtypes.Is(err, errtypes.EISDIR))
}

func TestImplicitDirectories(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/a/b/c.bin", []byte{0, 1, 2}))

	for _, p := range []string{"/a", "/a/b"} {
		fi, err := fs.Stat(ctx, p)
		require.NoError(t, err, p)
		assert.True(t, fi.IsDirectory(), p)
		assert.False(t, fi.IsFile(), p)
		assert.Zero(t, fi.Size)
		assert.Empty(t, fi.ETag)
	}

	// writeFile never requires mkdir first
	require.NoError(t, fs.Access(ctx, "/a/b/c.bin"))
}

func TestImplicitDirAggregateTimes(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/dir/one", []byte("1")))
	require.NoError(t, fs.WriteFile(ctx, "/dir/two", []byte("2")))

	one, err := fs.Stat(ctx, "/dir/one")
	require.NoError(t, err)
	two, err := fs.Stat(ctx, "/dir/two")
	require.NoError(t, err)

	dir, err := fs.Stat(ctx, "/dir")
	require.NoError(t, err)
	assert.False(t, dir.CTime.After(one.CTime))
	assert.False(t, dir.MTime.Before(two.MTime))
}

func TestMkdir(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	_, err := fs.Mkdir(ctx, "/d", storage.MkdirOptions{})
	require.NoError(t, err)

	fi, err := fs.Stat(ctx, "/d")
	require.NoError(t, err)
	assert.True(t, fi.IsDirectory())

	// never creates the same directory twice
	_, err = fs.Mkdir(ctx, "/d", storage.MkdirOptions{})
	assert.True(t, errtypes.Is(err, errtypes.EEXIST))
	_, err = fs.Mkdir(ctx, "/d", storage.MkdirOptions{Recursive: true})
	assert.True(t, errtypes.Is(err, errtypes.EEXIST))
}

func TestMkdirParentChecks(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	_, err := fs.Mkdir(ctx, "/missing/child", storage.MkdirOptions{})
	assert.True(t, errtypes.Is(err, errtypes.ENOENT))

	created, err := fs.Mkdir(ctx, "/missing/child", storage.MkdirOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, "/missing/child", created)

	// the intermediate stays implicit but resolves as a directory
	fi, err := fs.Stat(ctx, "/missing")
	require.NoError(t, err)
	assert.True(t, fi.IsDirectory())
}

func TestMkdirOverFile(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("x")))
	_, err := fs.Mkdir(ctx, "/f", storage.MkdirOptions{})
	assert.True(t, errtypes.Is(err, errtypes.EEXIST))
}

func TestReadFileMissing(t *testing.T) {
	fs := newTestFS(t)
	_, err := fs.ReadFile(context.Background(), "/nope")
	assert.True(t, errtypes.IsNotFound(err))
}

func TestReadDir(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/top/file.txt", []byte("f")))
	require.NoError(t, fs.WriteFile(ctx, "/top/sub/deep.txt", []byte("d")))
	_, err := fs.Mkdir(ctx, "/top/empty", storage.MkdirOptions{Recursive: true})
	require.NoError(t, err)

	entries, err := fs.ReadDir(ctx, "/top", storage.ReadDirOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// directories first, then files, both lexicographic
	assert.Equal(t, "empty", entries[0].Name)
	assert.True(t, entries[0].IsDirectory())
	assert.Equal(t, "sub", entries[1].Name)
	assert.True(t, entries[1].IsDirectory())
	assert.Equal(t, "file.txt", entries[2].Name)
	assert.True(t, entries[2].IsFile())
	assert.Equal(t, "/top", entries[2].Parent)
}

func TestReadDirRecursive(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/r/a/one", []byte("1")))
	require.NoError(t, fs.WriteFile(ctx, "/r/a/b/two", []byte("2")))
	require.NoError(t, fs.WriteFile(ctx, "/r/three", []byte("3")))

	entries, err := fs.ReadDir(ctx, "/r", storage.ReadDirOptions{Recursive: true})
	require.NoError(t, err)

	var dirs, files []string
	for _, e := range entries {
		if e.IsDirectory() {
			dirs = append(dirs, e.Parent+"/"+e.Name)
		} else {
			files = append(files, e.Parent+"/"+e.Name)
		}
	}
	assert.Equal(t, []string{"/r/a", "/r/a/b"}, dirs)
	assert.Equal(t, []string{"/r/a/one", "/r/a/b/two", "/r/three"}, files)
}

func TestReadDirRoot(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/rootfile", []byte("x")))
	entries, err := fs.ReadDir(ctx, "/", storage.ReadDirOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rootfile", entries[0].Name)
	assert.Equal(t, "/", entries[0].Parent)
}

func TestRenameFile(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/a.txt", []byte("content")))
	require.NoError(t, fs.Rename(ctx, "/a.txt", "/b.txt"))

	_, err := fs.Stat(ctx, "/a.txt")
	assert.True(t, errtypes.IsNotFound(err))

	got, err := fs.ReadFile(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("content"), got)
}

func TestRenameFileDestinationConflicts(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/src", []byte("s")))
	require.NoError(t, fs.WriteFile(ctx, "/existing", []byte("e")))
	_, err := fs.Mkdir(ctx, "/dir", storage.MkdirOptions{})
	require.NoError(t, err)

	assert.True(t, errtypes.Is(fs.Rename(ctx, "/src", "/existing"), errtypes.EEXIST))
	assert.True(t, errtypes.Is(fs.Rename(ctx, "/src", "/dir"), errtypes.EISDIR))
	assert.True(t, errtypes.IsNotFound(fs.Rename(ctx, "/ghost", "/dst")))
}

func TestRenameDirectory(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	_, err := fs.Mkdir(ctx, "/old", storage.MkdirOptions{})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(ctx, "/old/x", []byte("x")))
	require.NoError(t, fs.WriteFile(ctx, "/old/sub/y", []byte("y")))

	require.NoError(t, fs.Rename(ctx, "/old", "/new"))

	_, err = fs.Stat(ctx, "/old")
	assert.True(t, errtypes.IsNotFound(err))

	fi, err := fs.Stat(ctx, "/new")
	require.NoError(t, err)
	assert.True(t, fi.IsDirectory())

	got, err := fs.ReadFile(ctx, "/new/sub/y")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)
}

func TestRenameDirectoryOntoExisting(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	_, err := fs.Mkdir(ctx, "/one", storage.MkdirOptions{})
	require.NoError(t, err)
	_, err = fs.Mkdir(ctx, "/two", storage.MkdirOptions{})
	require.NoError(t, err)

	assert.True(t, errtypes.Is(fs.Rename(ctx, "/one", "/two"), errtypes.EEXIST))
}

func TestRmdir(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/d/child", []byte("c")))

	assert.True(t, errtypes.Is(fs.Rmdir(ctx, "/d", storage.RmdirOptions{}), errtypes.ENOTEMPTY))
	require.NoError(t, fs.Rmdir(ctx, "/d", storage.RmdirOptions{Recursive: true}))

	_, err := fs.Stat(ctx, "/d")
	assert.True(t, errtypes.IsNotFound(err))
	_, err = fs.Stat(ctx, "/d/child")
	assert.True(t, errtypes.IsNotFound(err))
}

func TestRmdirOnFile(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("x")))
	assert.True(t, errtypes.Is(fs.Rmdir(ctx, "/f", storage.RmdirOptions{}), errtypes.ENOTDIR))
}

func TestUnlink(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("x")))
	require.NoError(t, fs.Unlink(ctx, "/f"))
	assert.True(t, errtypes.IsNotFound(fs.Unlink(ctx, "/f")))
	assert.True(t, errtypes.Is(fs.Unlink(ctx, "/f/"), errtypes.EISDIR))
}

func TestRm(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/t/a", []byte("a")))
	require.NoError(t, fs.Rm(ctx, "/t", storage.RmOptions{Recursive: true}))
	_, err := fs.Stat(ctx, "/t")
	assert.True(t, errtypes.IsNotFound(err))

	// force swallows ENOENT
	assert.True(t, errtypes.IsNotFound(fs.Rm(ctx, "/t", storage.RmOptions{})))
	assert.NoError(t, fs.Rm(ctx, "/t", storage.RmOptions{Force: true}))
}

func TestCopyFile(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/src", []byte("payload")))
	require.NoError(t, fs.CopyFile(ctx, "/src", "/dst"))

	got, err := fs.ReadFile(ctx, "/dst")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	src, err := fs.Stat(ctx, "/src")
	require.NoError(t, err)
	dst, err := fs.Stat(ctx, "/dst")
	require.NoError(t, err)
	assert.Equal(t, src.ETag, dst.ETag)
	assert.Equal(t, src.Size, dst.Size)
}

func TestCopyFileErrors(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/src", []byte("p")))
	_, err := fs.Mkdir(ctx, "/dir", storage.MkdirOptions{})
	require.NoError(t, err)

	assert.True(t, errtypes.Is(fs.CopyFile(ctx, "/dir/", "/x"), errtypes.EINVAL))
	assert.True(t, errtypes.Is(fs.CopyFile(ctx, "/src", "/dir"), errtypes.EISDIR))
	assert.True(t, errtypes.IsNotFound(fs.CopyFile(ctx, "/ghost", "/x")))
}

func TestLikeWildcardsAreLiterals(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/a%b", []byte("percent")))
	require.NoError(t, fs.WriteFile(ctx, "/a_b", []byte("underscore")))
	require.NoError(t, fs.WriteFile(ctx, "/axb", []byte("sibling")))
	require.NoError(t, fs.WriteFile(ctx, "/a%b-dir/child", []byte("c")))

	// listing the wildcard-named implicit dir must not leak into siblings
	entries, err := fs.ReadDir(ctx, "/a%b-dir", storage.ReadDirOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "child", entries[0].Name)

	require.NoError(t, fs.Unlink(ctx, "/a%b"))
	require.NoError(t, fs.Unlink(ctx, "/a_b"))

	// the sibling survives the wildcard-ish deletes
	got, err := fs.ReadFile(ctx, "/axb")
	require.NoError(t, err)
	assert.Equal(t, []byte("sibling"), got)
}

func TestCreateReadStream(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	body := bytes.Repeat([]byte("0123456789abcdef"), 160*1024) // 2.5 MiB
	require.NoError(t, fs.WriteFile(ctx, "/big", body))

	r, err := fs.CreateReadStream(ctx, "/big")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestCreateReadStreamChunkBound(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	body := bytes.Repeat([]byte{0xab}, MaxChunkSize+100)
	require.NoError(t, fs.WriteFile(ctx, "/big", body))

	r, err := fs.CreateReadStream(ctx, "/big")
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, len(body))
	n, err := r.Read(buf)
	require.NoError(t, err)
	// a single round-trip never exceeds the chunk cap
	assert.Equal(t, MaxChunkSize, n)
}

func TestCreateReadStreamMissing(t *testing.T) {
	fs := newTestFS(t)
	_, err := fs.CreateReadStream(context.Background(), "/nope")
	assert.True(t, errtypes.IsNotFound(err))
}

func TestCreateReadStreamClosed(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("data")))
	r, err := fs.CreateReadStream(ctx, "/f")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Read(make([]byte, 4))
	assert.Error(t, err)
}

func TestStatEmptyRoot(t *testing.T) {
	fs := newTestFS(t)
	_, err := fs.Stat(context.Background(), "/")
	assert.True(t, errtypes.IsNotFound(err))
}

func TestStatRootWithContent(t *testing.T) {
	fs := newTestFS(t)
	ctx := context.Background()

	require.NoError(t, fs.WriteFile(ctx, "/f", []byte("x")))
	fi, err := fs.Stat(ctx, "/")
	require.NoError(t, err)
	assert.True(t, fi.IsDirectory())
	assert.Equal(t, "/", fi.Path)
}
