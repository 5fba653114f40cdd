package gitfs

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/dlogger"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
	"github.com/oneconcern/gitfs/pkg/metrics"
	"github.com/oneconcern/gitfs/pkg/repository"
	"github.com/oneconcern/gitfs/pkg/revision"
)

type state uint8

const (
	stateUninitialized state = iota
	stateHandleOpen
	stateSnapshotResolved
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateHandleOpen:
		return "handle-open"
	case stateSnapshotResolved:
		return "snapshot-resolved"
	case stateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

type commitFunc func(*git.Worktree, string, *git.CommitOptions) (plumbing.Hash, error)

// Namespace serves the tree of a single revision of a repository.
//
// The repository handle and the snapshot are resolved lazily by the first operation
// that needs them, and are kept for the lifetime of the namespace.
type Namespace struct {
	metrics.Enable
	m *M

	opts     []Option
	loc      repository.Locator
	revision string
	root     string
	author   repository.Identity
	l        *zap.Logger

	state    state
	handle   *repository.Handle
	snapshot *revision.Snapshot

	// working tree, nil for bare repositories
	work afero.Fs

	// random access copies
	tmp afero.Fs

	commit commitFunc
}

// New namespace. No repository access is performed until the first operation.
func New(opts ...Option) *Namespace {
	ns := &Namespace{
		opts:   opts,
		root:   rootName,
		l:      dlogger.MustGetLogger(dlogger.LogLevelInfo),
		tmp:    afero.NewOsFs(),
		commit: (*git.Worktree).Commit,
	}
	for _, apply := range opts {
		apply(ns)
	}

	if ns.MetricsEnabled() {
		ns.m = ns.EnsureMetrics("gitfs", &M{}).(*M)
	}
	return ns
}

// Open a namespace, resolving the snapshot right away
func Open(opts ...Option) (*Namespace, error) {
	ns := New(opts...)
	if err := ns.ensureSnapshot(); err != nil {
		_ = ns.Close()
		return nil, err
	}
	return ns, nil
}

// Reload builds a new namespace with the same options, on a freshly resolved revision.
// The receiver is left untouched.
func (ns *Namespace) Reload() (*Namespace, error) {
	if ns.state == stateClosed {
		return nil, status.ErrClosed
	}
	return Open(ns.opts...)
}

// Close releases the repository handle. Any subsequent operation fails with status.ErrClosed.
func (ns *Namespace) Close() error {
	if ns.state == stateClosed {
		return status.ErrClosed
	}
	ns.state = stateClosed
	ns.snapshot = nil
	ns.work = nil
	if ns.handle == nil {
		return nil
	}
	err := ns.handle.Close()
	ns.handle = nil
	ns.l.Debug("namespace closed")
	return err
}

// Root is the absolute name of the root of this namespace
func (ns *Namespace) Root() string {
	return ns.root
}

func (ns *Namespace) ensureHandle() error {
	switch ns.state {
	case stateClosed:
		return status.ErrClosed
	case stateHandleOpen, stateSnapshotResolved:
		return nil
	}

	opts := []repository.Option{repository.Logger(ns.l)}
	if ns.author.Name != "" || ns.author.Email != "" {
		opts = append(opts, repository.Author(ns.author.Name, ns.author.Email))
	}
	h, err := repository.Open(ns.loc, opts...)
	if err != nil {
		return err
	}

	ns.handle = h
	if !h.IsBare() {
		ns.work = afero.NewBasePathFs(afero.NewOsFs(), h.WorkTree())
	}
	ns.state = stateHandleOpen
	ns.l = ns.l.With(zap.String("repo", h.GitDir()))
	return nil
}

func (ns *Namespace) ensureSnapshot() error {
	if err := ns.ensureHandle(); err != nil {
		return err
	}
	if ns.state == stateSnapshotResolved {
		return nil
	}

	snapshot, err := revision.NewResolver(ns.handle.Repository(), revision.Logger(ns.l)).Resolve(ns.revision)
	if err != nil {
		return err
	}

	ns.snapshot = snapshot
	ns.state = stateSnapshotResolved
	ns.l.Info("snapshot resolved",
		zap.String("revision", ns.revision),
		zap.Stringer("snapshot", snapshot.Hash()),
	)
	return nil
}

// Snapshot served by this namespace
func (ns *Namespace) Snapshot() (*revision.Snapshot, error) {
	if err := ns.ensureSnapshot(); err != nil {
		return nil, err
	}
	return ns.snapshot, nil
}

// Handle to the repository
func (ns *Namespace) Handle() (*repository.Handle, error) {
	if err := ns.ensureHandle(); err != nil {
		return nil, err
	}
	return ns.handle, nil
}

func (ns *Namespace) repo() *git.Repository {
	return ns.handle.Repository()
}
