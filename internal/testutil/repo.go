// Package testutil builds git repositories used as test fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/stretchr/testify/require"
)

const (
	// AuthorName is the identity configured in fixture repositories
	AuthorName = "gitfs tester"

	// AuthorEmail is the email configured in fixture repositories
	AuthorEmail = "tester@gitfs.local"
)

// Repo is a git repository with a working tree, created in a temporary directory
type Repo struct {
	Dir  string
	Repo *git.Repository

	clock time.Time
}

// NewRepo initializes an empty repository with a configured user
func NewRepo(t testing.TB) *Repo {
	dir := t.TempDir()
	r, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	cfg, err := r.Config()
	require.NoError(t, err)
	cfg.User.Name = AuthorName
	cfg.User.Email = AuthorEmail
	require.NoError(t, r.SetConfig(cfg))

	return &Repo{
		Dir:   dir,
		Repo:  r,
		clock: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewBareRepo initializes an empty bare repository
func NewBareRepo(t testing.TB) *Repo {
	dir := t.TempDir()
	r, err := git.PlainInit(dir, true)
	require.NoError(t, err)
	return &Repo{
		Dir:   dir,
		Repo:  r,
		clock: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// GitDir is the metadata directory of the fixture
func (f *Repo) GitDir() string {
	return filepath.Join(f.Dir, git.GitDirName)
}

// Path resolves a slash-separated relative path in the working tree
func (f *Repo) Path(rel string) string {
	return filepath.Join(f.Dir, filepath.FromSlash(rel))
}

// Write creates or overwrites a file in the working tree, without committing it
func (f *Repo) Write(t testing.TB, rel string, content []byte) {
	f.WriteMode(t, rel, content, 0o644)
}

// WriteMode creates or overwrites a file in the working tree with some permissions
func (f *Repo) WriteMode(t testing.TB, rel string, content []byte, mode os.FileMode) {
	p := f.Path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, content, mode))
	require.NoError(t, os.Chmod(p, mode))
}

// Mkdir creates a directory in the working tree
func (f *Repo) Mkdir(t testing.TB, rel string) {
	require.NoError(t, os.MkdirAll(f.Path(rel), 0o755))
}

// Commit stages the given paths and commits them. Commit times increase by one minute on each call.
func (f *Repo) Commit(t testing.TB, msg string, paths ...string) plumbing.Hash {
	w, err := f.Repo.Worktree()
	require.NoError(t, err)
	for _, p := range paths {
		_, err = w.Add(p)
		require.NoError(t, err)
	}

	f.clock = f.clock.Add(time.Minute)
	sig := &object.Signature{Name: AuthorName, Email: AuthorEmail, When: f.clock}
	h, err := w.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true})
	require.NoError(t, err)
	return h
}

// Merge records a commit with explicit parents, reusing the tree currently staged
func (f *Repo) Merge(t testing.TB, msg string, parents ...plumbing.Hash) plumbing.Hash {
	w, err := f.Repo.Worktree()
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Minute)
	sig := &object.Signature{Name: AuthorName, Email: AuthorEmail, When: f.clock}
	h, err := w.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig, Parents: parents, AllowEmptyCommits: true})
	require.NoError(t, err)
	return h
}

// CommitFiles writes then commits some files
func (f *Repo) CommitFiles(t testing.TB, msg string, files map[string][]byte) plumbing.Hash {
	paths := make([]string, 0, len(files))
	for p, content := range files {
		f.Write(t, p, content)
		paths = append(paths, p)
	}
	return f.Commit(t, msg, paths...)
}

// Tag creates a tag on some object. An empty message creates a lightweight tag.
func (f *Repo) Tag(t testing.TB, name string, h plumbing.Hash, msg string) {
	var opts *git.CreateTagOptions
	if msg != "" {
		opts = &git.CreateTagOptions{
			Tagger:  &object.Signature{Name: AuthorName, Email: AuthorEmail, When: f.clock},
			Message: msg,
		}
	}
	_, err := f.Repo.CreateTag(name, h, opts)
	require.NoError(t, err)
}

// Branch creates or moves a branch to some commit
func (f *Repo) Branch(t testing.TB, name string, h plumbing.Hash) {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), h)
	require.NoError(t, f.Repo.Storer.SetReference(ref))
}

// Head returns the commit at HEAD, as seen on disk
func (f *Repo) Head(t testing.TB) *object.Commit {
	repo := f.Reopen(t)
	ref, err := repo.Head()
	require.NoError(t, err)
	c, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return c
}

// Reopen opens the fixture again, so as to observe changes made by other handles
func (f *Repo) Reopen(t testing.TB) *git.Repository {
	r, err := git.PlainOpen(f.Dir)
	require.NoError(t, err)
	return r
}

// CommitObjects records a commit of top-level files straight into the object store, on the current branch.
// Unlike Commit, it works on bare repositories.
func (f *Repo) CommitObjects(t testing.TB, msg string, files map[string][]byte) plumbing.Hash {
	s := f.Repo.Storer

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	tree := &object.Tree{}
	for _, name := range names {
		obj := s.NewEncodedObject()
		obj.SetType(plumbing.BlobObject)
		w, err := obj.Writer()
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
		require.NoError(t, w.Close())

		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: store(t, s, obj)})
	}
	treeObj := s.NewEncodedObject()
	require.NoError(t, tree.Encode(treeObj))

	f.clock = f.clock.Add(time.Minute)
	sig := object.Signature{Name: AuthorName, Email: AuthorEmail, When: f.clock}
	commit := &object.Commit{Author: sig, Committer: sig, Message: msg, TreeHash: store(t, s, treeObj)}
	if head, err := f.Repo.Head(); err == nil {
		commit.ParentHashes = []plumbing.Hash{head.Hash()}
	}
	commitObj := s.NewEncodedObject()
	require.NoError(t, commit.Encode(commitObj))
	h := store(t, s, commitObj)

	head, err := s.Reference(plumbing.HEAD)
	require.NoError(t, err)
	target := head.Name()
	if head.Type() == plumbing.SymbolicReference {
		target = head.Target()
	}
	require.NoError(t, s.SetReference(plumbing.NewHashReference(target, h)))
	return h
}

func store(t testing.TB, s storer.EncodedObjectStorer, obj plumbing.EncodedObject) plumbing.Hash {
	h, err := s.SetEncodedObject(obj)
	require.NoError(t, err)
	return h
}
