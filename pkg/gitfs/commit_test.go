package gitfs

import (
	"os"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/gitfs/internal/testutil"
	"github.com/oneconcern/gitfs/pkg/dlogger"
	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

func TestCommitAdd(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	f.Write(t, "new.txt", []byte("new"))
	h, err := ns.CommitAdd("/new.txt", "")
	require.NoError(t, err)

	head := headCommit(t, f.Repo)
	assert.Equal(t, h, head.Hash)
	assert.Equal(t, "Modify new.txt", head.Message)
	assert.Equal(t, testutil.AuthorName, head.Author.Name)
	assert.Equal(t, testutil.AuthorEmail, head.Committer.Email)
	require.Len(t, head.ParentHashes, 1)
	assert.Equal(t, f.last, head.ParentHashes[0])

	fresh := reload(t, ns)
	content, err := fresh.ReadFile("new.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	// previously committed content is kept
	content, err = fresh.ReadFile("folder1/nested.txt")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(content))
}

func TestCommitAddDirectory(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo, Author("Jane", "jane@example.com"))

	f.Write(t, "dir/x.txt", []byte("x"))
	f.Write(t, "dir/sub/y.txt", []byte("y"))
	f.WriteMode(t, "dir/run.sh", []byte("#!/bin/sh\n"), 0o755)
	_, err := ns.CommitAdd("dir", "add dir")
	require.NoError(t, err)

	head := headCommit(t, f.Repo)
	assert.Equal(t, "add dir", head.Message)
	assert.Equal(t, "Jane", head.Author.Name)

	fresh := reload(t, ns)
	names, err := fresh.ListChildren("dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"run.sh", "sub", "x.txt"}, names)

	kind, err := fresh.Type("dir/run.sh")
	require.NoError(t, err)
	assert.Equal(t, ExecutableFile, kind)

	content, err := fresh.ReadFile("dir/sub/y.txt")
	require.NoError(t, err)
	assert.Equal(t, "y", string(content))
}

func TestCommitAddDirectoryDropsRemovedFiles(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	require.NoError(t, os.Remove(f.Path("folder1/nested.txt")))
	f.Write(t, "folder1/other.txt", []byte("other"))
	_, err := ns.CommitAdd("folder1", "")
	require.NoError(t, err)

	fresh := reload(t, ns)
	kind, err := fresh.Type("folder1/nested.txt")
	require.NoError(t, err)
	assert.Equal(t, Absent, kind)
	kind, err = fresh.Type("folder1/other.txt")
	require.NoError(t, err)
	assert.Equal(t, RegularFile, kind)

	names, err := fresh.ListChildren("folder1")
	require.NoError(t, err)
	assert.Equal(t, []string{"other.txt"}, names)
}

func TestCommitAddMissingRemoves(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	require.NoError(t, os.Remove(f.Path("file2.txt")))
	_, err := ns.CommitAdd("file2.txt", "")
	require.NoError(t, err)

	kind, err := reload(t, ns).Type("file2.txt")
	require.NoError(t, err)
	assert.Equal(t, Absent, kind)
}

func TestCommitAddReplacesFileWithDirectory(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	require.NoError(t, os.Remove(f.Path("file1.txt")))
	f.Write(t, "file1.txt/inner.txt", []byte("inner"))
	_, err := ns.CommitAdd("file1.txt/inner.txt", "")
	require.NoError(t, err)

	fresh := reload(t, ns)
	kind, err := fresh.Type("file1.txt")
	require.NoError(t, err)
	assert.Equal(t, Directory, kind)
}

func TestCommitRemove(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	_, err := ns.CommitRemove("folder1", "")
	require.NoError(t, err)
	assert.Equal(t, "Delete folder1", headCommit(t, f.Repo).Message)

	fresh := reload(t, ns)
	kind, err := fresh.Type("folder1/nested.txt")
	require.NoError(t, err)
	assert.Equal(t, Absent, kind)

	kind, err = fresh.Type("file1.txt")
	require.NoError(t, err)
	assert.Equal(t, RegularFile, kind)

	// the working copy is left as is
	_, err = os.Stat(f.Path("folder1/nested.txt"))
	assert.NoError(t, err)
}

func TestCommitRename(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	require.NoError(t, os.Rename(f.Path("file1.txt"), f.Path("renamed.txt")))
	_, err := ns.CommitRename("file1.txt", "renamed.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "Rename file1.txt to renamed.txt", headCommit(t, f.Repo).Message)

	fresh := reload(t, ns)
	kind, err := fresh.Type("file1.txt")
	require.NoError(t, err)
	assert.Equal(t, Absent, kind)

	content, err := fresh.ReadFile("renamed.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", string(content))
}

func TestCommitInvalidPaths(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo, RootName("/mnt"))

	for _, p := range []string{"/mnt", "/mnt/.git", "/mnt/.git/config"} {
		_, err := ns.CommitAdd(p, "")
		assert.True(t, errors.Is(err, status.ErrInvalidEntryKind), p)
	}
	_, err := ns.CommitAdd("/elsewhere/file1.txt", "")
	assert.True(t, errors.Is(err, status.ErrOutsideRoot))
}

func TestPartialCommit(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)
	failure := errors.New("cannot update ref")
	ns.commit = func(*git.Worktree, string, *git.CommitOptions) (plumbing.Hash, error) {
		return plumbing.ZeroHash, failure
	}

	f.Write(t, "partial.txt", []byte("partial"))
	_, err := ns.CommitAdd("partial.txt", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrPartialCommit))
	assert.True(t, errors.Is(err, failure))

	// no commit was made, but the index was updated
	assert.Equal(t, f.last, headCommit(t, f.Repo).Hash)
	idx, err := f.Reopen(t).Storer.Index()
	require.NoError(t, err)
	_, err = idx.Entry("partial.txt")
	assert.NoError(t, err)
}

func TestBareIsReadOnly(t *testing.T) {
	bare := testutil.NewBareRepo(t)
	bare.CommitObjects(t, "init", map[string][]byte{"readme.md": []byte("bare")})

	ns, err := Open(GitDir(bare.Dir), Logger(dlogger.TestLogger()))
	require.NoError(t, err)
	defer func() { _ = ns.Close() }()

	content, err := ns.ReadFile("readme.md")
	require.NoError(t, err)
	assert.Equal(t, "bare", string(content))

	_, err = ns.CommitAdd("readme.md", "")
	assert.True(t, errors.Is(err, status.ErrReadOnly))
	_, err = ns.CommitRemove("readme.md", "")
	assert.True(t, errors.Is(err, status.ErrReadOnly))
	_, err = ns.OpenWriter("readme.md", false)
	assert.True(t, errors.Is(err, status.ErrReadOnly))
	_, err = ns.Delete("readme.md", "")
	assert.True(t, errors.Is(err, status.ErrReadOnly))
	_, err = ns.Rename("readme.md", "other.md", "")
	assert.True(t, errors.Is(err, status.ErrReadOnly))
	assert.True(t, errors.Is(ns.Mkdir("dir"), status.ErrReadOnly))

	assert.False(t, ns.Can(CapWriteContent))
	assert.True(t, ns.Can(CapReadContent))
	assert.Len(t, ns.Capabilities(), 5)
}

func TestCapabilities(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)
	caps := ns.Capabilities()
	assert.Len(t, caps, 10)
	for _, c := range []Capability{CapCreate, CapDelete, CapRename, CapAppendContent, CapRandomAccessRead} {
		assert.Contains(t, caps, c)
	}
}
