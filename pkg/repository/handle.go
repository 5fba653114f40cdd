package repository

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

// Locator tells where to find a repository.
//
// An explicit GitDir takes precedence over the upward search from WorkDir.
type Locator struct {
	// GitDir is the git metadata directory (e.g. /path/to/work/.git)
	GitDir string

	// WorkTree is the working tree. When empty, it is inferred from the metadata directory.
	WorkTree string

	// WorkDir is where the upward search for a repository starts. Defaults to the current directory.
	WorkDir string
}

// Handle to an open repository
type Handle struct {
	repo     *git.Repository
	gitDir   string
	workTree string
	identity Identity

	l *zap.Logger
}

// Open a repository handle.
//
// Failing to locate a repository yields status.ErrRepositoryNotFound.
func Open(loc Locator, opts ...Option) (*Handle, error) {
	h := &Handle{
		l: zap.NewNop(),
	}
	for _, apply := range opts {
		apply(h)
	}

	var err error
	if loc.GitDir == "" {
		loc, err = h.discover(loc)
		if err != nil {
			return nil, err
		}
	}

	if err = h.open(loc); err != nil {
		return nil, err
	}

	h.identity = h.resolveIdentity()
	h.l = h.l.With(zap.String("gitdir", h.gitDir))
	h.l.Debug("repository opened",
		zap.String("worktree", h.workTree),
		zap.String("author", h.identity.String()),
	)
	return h, nil
}

// discover searches a repository upward from the work dir and
// returns a locator with an explicit metadata directory.
func (h *Handle) discover(loc Locator) (Locator, error) {
	start := loc.WorkDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return loc, status.ErrRepositoryNotFound.Wrap(err)
		}
		start = wd
	}

	r, err := git.PlainOpenWithOptions(start, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		// a bare repository has no .git entry to detect
		var errBare error
		r, errBare = git.PlainOpen(start)
		if errBare != nil {
			return loc, status.ErrRepositoryNotFound.WrapMessage("searched from %s", start).Wrap(err)
		}
	}

	st, ok := r.Storer.(*filesystem.Storage)
	if !ok {
		return loc, status.ErrRepositoryNotFound.WrapMessage("unexpected storage for %s", start)
	}
	loc.GitDir = st.Filesystem().Root()

	if loc.WorkTree == "" {
		if w, errWorktree := r.Worktree(); errWorktree == nil {
			loc.WorkTree = w.Filesystem.Root()
		}
	}
	h.l.Debug("repository discovered", zap.String("from", start), zap.String("gitdir", loc.GitDir))
	return loc, nil
}

func (h *Handle) open(loc Locator) error {
	gitDir, err := filepath.Abs(loc.GitDir)
	if err != nil {
		return status.ErrRepositoryNotFound.Wrap(err)
	}
	fi, err := os.Stat(gitDir)
	if err != nil {
		return status.ErrRepositoryNotFound.Wrap(err)
	}
	if !fi.IsDir() {
		return status.ErrRepositoryNotFound.WrapMessage("%s is not a directory", gitDir)
	}

	workTree := loc.WorkTree
	if workTree == "" && filepath.Base(gitDir) == git.GitDirName {
		workTree = filepath.Dir(gitDir)
	}

	var wt billy.Filesystem
	if workTree != "" {
		if workTree, err = filepath.Abs(workTree); err != nil {
			return status.ErrRepositoryNotFound.Wrap(err)
		}
		wt = osfs.New(workTree)
	}

	storer := filesystem.NewStorage(osfs.New(gitDir), cache.NewObjectLRUDefault())
	r, err := git.Open(storer, wt)
	if err != nil {
		return status.ErrRepositoryNotFound.WrapMessage("at %s", gitDir).Wrap(err)
	}

	h.repo = r
	h.gitDir = gitDir
	h.workTree = workTree
	return nil
}

// Repository exposes the underlying go-git repository
func (h *Handle) Repository() *git.Repository {
	return h.repo
}

// GitDir is the absolute path to the metadata directory
func (h *Handle) GitDir() string {
	return h.gitDir
}

// WorkTree is the absolute path to the working tree, or the empty string for a bare repository
func (h *Handle) WorkTree() string {
	return h.workTree
}

// IsBare tells if this repository has no working tree
func (h *Handle) IsBare() bool {
	return h.workTree == ""
}

// Worktree returns the go-git working tree
func (h *Handle) Worktree() (*git.Worktree, error) {
	if h.IsBare() {
		return nil, status.ErrBareRepository
	}
	w, err := h.repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, status.ErrBareRepository.Wrap(err)
		}
		return nil, err
	}
	return w, nil
}

// Identity used to sign commits
func (h *Handle) Identity() Identity {
	return h.identity
}

// Signature builds a commit signature for the current time
func (h *Handle) Signature() *object.Signature {
	return &object.Signature{
		Name:  h.identity.Name,
		Email: h.identity.Email,
		When:  time.Now(),
	}
}

// Close releases the resources held by the object store
func (h *Handle) Close() error {
	if h.repo == nil {
		return nil
	}
	if closer, ok := h.repo.Storer.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	h.l.Debug("repository closed")
	h.repo = nil
	return nil
}
