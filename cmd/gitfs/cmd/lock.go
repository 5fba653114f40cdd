package cmd

import (
	"path/filepath"

	"github.com/nightlyone/lockfile"

	"github.com/oneconcern/gitfs/pkg/gitfs"
)

const lockName = "gitfs.lock"

// withLock runs a mutation while holding a lock file in the git directory.
// Concurrent gitfs commands committing to the same repository fail fast instead of racing on the index.
func withLock(ns *gitfs.Namespace, action func()) {
	h, err := ns.Handle()
	if err != nil {
		wrapFatalln("failed to open repository", err)
		return
	}

	lock, err := lockfile.New(filepath.Join(h.GitDir(), lockName))
	if err != nil {
		wrapFatalln("failed to create lock file", err)
		return
	}
	if err = lock.TryLock(); err != nil {
		wrapFatalln("failed to acquire lock on "+h.GitDir(), err)
		return
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			wrapFatalln("failed to release lock on "+h.GitDir(), err)
		}
	}()

	action()
}
