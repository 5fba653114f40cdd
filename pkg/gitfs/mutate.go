package gitfs

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

// Create an empty file and commit it
func (ns *Namespace) Create(p, message string) (plumbing.Hash, error) {
	w, err := ns.OpenWriter(p, false)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return w.Finalize(message)
}

// Delete removes some path from the working tree, then commits the removal.
// Directories are removed with all their content. A path already missing from the working tree
// is still removed from the index; a path known to neither is reported as status.ErrNotExist.
func (ns *Namespace) Delete(p, message string) (h plumbing.Hash, err error) {
	defer ns.track("Delete")(&err)

	if _, err = ns.mutable(); err != nil {
		return plumbing.ZeroHash, err
	}
	rel, err := ns.existing(p)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err = ns.work.RemoveAll(rel); err != nil {
		return plumbing.ZeroHash, err
	}
	return ns.CommitRemove(rel, message)
}

// existing resolves a mutable path that must be in the working tree or in the index
func (ns *Namespace) existing(p string) (string, error) {
	rel, err := ns.mutablePath(p)
	if err != nil {
		return "", err
	}
	_, err = ns.work.Stat(rel)
	if err == nil {
		return rel, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	idx, err := ns.repo().Storer.Index()
	if err != nil {
		return "", err
	}
	for _, e := range idx.Entries {
		if e.Name == rel || strings.HasPrefix(e.Name, rel+"/") {
			return rel, nil
		}
	}
	return "", status.ErrNotExist.WrapMessage("%s", ns.absolute(rel)).Wrap(os.ErrNotExist)
}

// Rename moves some path in the working tree, then commits the move.
//
// The index is updated first: entries under the new name keep the blob and mode they had
// under the old name. When the working tree cannot be updated, the index is restored and
// nothing is committed.
func (ns *Namespace) Rename(oldPath, newPath, message string) (h plumbing.Hash, err error) {
	defer ns.track("Rename")(&err)

	w, err := ns.mutable()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	oldRel, err := ns.mutablePath(oldPath)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	newRel, err := ns.mutablePath(newPath)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if oldRel == newRel || strings.HasPrefix(newRel, oldRel+"/") {
		return plumbing.ZeroHash, status.ErrInvalidEntryKind.WrapMessage("cannot move %s to %s", oldRel, newRel)
	}

	storer := ns.repo().Storer
	previous, err := storer.Index()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	idx, err := storer.Index()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err = ns.move(idx, oldRel, newRel); err != nil {
		return plumbing.ZeroHash, err
	}
	if err = storer.SetIndex(idx); err != nil {
		return plumbing.ZeroHash, err
	}

	err = ns.work.MkdirAll(path.Dir(newRel), 0o755)
	if err == nil {
		err = ns.work.Rename(oldRel, newRel)
	}
	if err != nil {
		if errRestore := storer.SetIndex(previous); errRestore != nil {
			ns.l.Error("could not restore index", zap.Error(errRestore))
		}
		return plumbing.ZeroHash, err
	}

	return ns.record(w, newRecord(OpRename, message, oldRel, newRel))
}

// move renames index entries. Paths which are not indexed yet are staged from the working tree.
func (ns *Namespace) move(idx *index.Index, oldRel, newRel string) error {
	var moved []index.Entry
	for _, e := range idx.Entries {
		switch {
		case e.Name == oldRel:
			c := *e
			c.Name = newRel
			moved = append(moved, c)
		case strings.HasPrefix(e.Name, oldRel+"/"):
			c := *e
			c.Name = newRel + strings.TrimPrefix(e.Name, oldRel)
			moved = append(moved, c)
		}
	}

	if len(moved) == 0 {
		if err := ns.stage(idx, oldRel, newRel); err != nil {
			return err
		}
		unstage(idx, oldRel)
		return nil
	}

	unstage(idx, oldRel)
	pruneConflicts(idx, newRel)
	for i := range moved {
		e := moved[i]
		unstage(idx, e.Name)
		idx.Entries = append(idx.Entries, &e)
	}
	return nil
}

// Mkdir creates a directory in the working tree. Empty directories are not recorded by git,
// so nothing is committed.
func (ns *Namespace) Mkdir(p string) (err error) {
	defer ns.track("Mkdir")(&err)

	if _, err = ns.mutable(); err != nil {
		return err
	}
	rel, err := ns.mutablePath(p)
	if err != nil {
		return err
	}
	return ns.work.MkdirAll(rel, 0o755)
}

// LastModified is the modification time of the working copy at some path.
// Without a working copy, this is the time of the snapshot commit.
func (ns *Namespace) LastModified(p string) (time.Time, error) {
	if err := ns.ensureSnapshot(); err != nil {
		return time.Time{}, err
	}
	rel, _, err := ns.relative(p)
	if err != nil {
		return time.Time{}, err
	}

	if ns.work != nil {
		info, erw := ns.work.Stat(rel)
		if erw == nil {
			return info.ModTime(), nil
		}
		if !os.IsNotExist(erw) {
			return time.Time{}, erw
		}
	}

	e, err := ns.find(rel)
	if err != nil {
		return time.Time{}, err
	}
	if !e.Exists() {
		return time.Time{}, status.ErrNotExist.WrapMessage("%s", ns.absolute(rel)).Wrap(os.ErrNotExist)
	}
	return ns.snapshot.Time(), nil
}

// SetLastModified sets the access and modification times of the working copy at some path
func (ns *Namespace) SetLastModified(p string, t time.Time) error {
	if _, err := ns.mutable(); err != nil {
		return err
	}
	rel, _, err := ns.relative(p)
	if err != nil {
		return err
	}
	return ns.work.Chtimes(rel, t, t)
}
