package gitfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

// Op is a kind of mutation
type Op uint8

// Mutations
const (
	OpAdd Op = iota
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "add"
	}
}

// MutationRecord describes a mutation about to be committed
type MutationRecord struct {
	Op      Op
	Paths   []string
	Message string
}

func newRecord(op Op, message string, paths ...string) MutationRecord {
	if message == "" {
		switch op {
		case OpRemove:
			message = fmt.Sprintf("Delete %s", paths[0])
		case OpRename:
			message = fmt.Sprintf("Rename %s to %s", paths[0], paths[1])
		default:
			message = fmt.Sprintf("Modify %s", paths[0])
		}
	}
	return MutationRecord{Op: op, Paths: paths, Message: message}
}

const gitDirName = ".git"

// mutable returns the working tree, or status.ErrReadOnly for bare repositories
func (ns *Namespace) mutable() (*git.Worktree, error) {
	if err := ns.ensureHandle(); err != nil {
		return nil, err
	}
	if ns.work == nil {
		return nil, status.ErrReadOnly.WrapMessage("no working tree for %s", ns.handle.GitDir())
	}
	return ns.handle.Worktree()
}

// mutablePath resolves a path for a mutation: the root cannot be mutated
func (ns *Namespace) mutablePath(p string) (string, error) {
	rel, isRoot, err := ns.relative(p)
	if err != nil {
		return "", err
	}
	if isRoot {
		return "", status.ErrInvalidEntryKind.WrapMessage("the root cannot be mutated")
	}
	if rel == gitDirName || strings.HasPrefix(rel, gitDirName+"/") {
		return "", status.ErrInvalidEntryKind.WrapMessage("%s is reserved", rel)
	}
	return rel, nil
}

// CommitAdd records in a new commit the content of the working tree at some path.
// A directory is added with all the files it contains. A path missing from the working tree
// is removed from the index.
func (ns *Namespace) CommitAdd(p, message string) (h plumbing.Hash, err error) {
	defer ns.track("CommitAdd")(&err)

	rel, err := ns.mutablePath(p)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ns.apply(newRecord(OpAdd, message, rel), func(idx *index.Index) error {
		return ns.stage(idx, rel, rel)
	})
}

// CommitRemove records in a new commit the removal of some path from the index
func (ns *Namespace) CommitRemove(p, message string) (h plumbing.Hash, err error) {
	defer ns.track("CommitRemove")(&err)

	rel, err := ns.mutablePath(p)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ns.apply(newRecord(OpRemove, message, rel), func(idx *index.Index) error {
		unstage(idx, rel)
		return nil
	})
}

// CommitRename records in a new commit a rename already performed in the working tree
func (ns *Namespace) CommitRename(oldPath, newPath, message string) (h plumbing.Hash, err error) {
	defer ns.track("CommitRename")(&err)

	oldRel, err := ns.mutablePath(oldPath)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	newRel, err := ns.mutablePath(newPath)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ns.apply(newRecord(OpRename, message, oldRel, newRel), func(idx *index.Index) error {
		unstage(idx, oldRel)
		return ns.stage(idx, newRel, newRel)
	})
}

// apply updates the index then commits.
//
// When the commit fails after the index is updated, the index is not rolled back
// and the error wraps status.ErrPartialCommit.
func (ns *Namespace) apply(rec MutationRecord, update func(*index.Index) error) (plumbing.Hash, error) {
	w, err := ns.mutable()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	idx, err := ns.repo().Storer.Index()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err = update(idx); err != nil {
		return plumbing.ZeroHash, err
	}
	if err = ns.repo().Storer.SetIndex(idx); err != nil {
		return plumbing.ZeroHash, err
	}

	return ns.record(w, rec)
}

func (ns *Namespace) record(w *git.Worktree, rec MutationRecord) (plumbing.Hash, error) {
	done := ns.trackIO("commit")
	sig := ns.handle.Signature()
	h, err := ns.commit(w, rec.Message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	done(0, err)
	if err != nil {
		return plumbing.ZeroHash, status.ErrPartialCommit.WrapWithLog(ns.l, err,
			zap.Stringer("op", rec.Op),
			zap.Strings("paths", rec.Paths),
		)
	}

	ns.l.Info("committed",
		zap.Stringer("op", rec.Op),
		zap.Strings("paths", rec.Paths),
		zap.Stringer("commit", h),
	)
	return h, nil
}

// stage adds to the index the working tree content found at src, under the name dst
func (ns *Namespace) stage(idx *index.Index, src, dst string) error {
	info, err := ns.work.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			unstage(idx, dst)
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return ns.stageFile(idx, src, dst, info)
	}

	unstage(idx, dst)
	return afero.Walk(ns.work, src, func(pth string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := fi.Name()
		if fi.IsDir() {
			if name == gitDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, stagingPrefix) {
			return nil
		}
		rel := strings.TrimPrefix(filepath.ToSlash(pth), "/")
		return ns.stageFile(idx, rel, path.Join(dst, strings.TrimPrefix(rel, src+"/")), fi)
	})
}

func (ns *Namespace) stageFile(idx *index.Index, src, dst string, info os.FileInfo) error {
	mode, err := filemode.NewFromOSFileMode(info.Mode())
	if err != nil {
		return err
	}
	if mode != filemode.Regular && mode != filemode.Executable {
		return status.ErrInvalidEntryKind.WrapMessage("%s is not a regular file", src)
	}

	h, err := ns.writeBlob(src, info.Size())
	if err != nil {
		return err
	}

	pruneConflicts(idx, dst)
	e, err := idx.Entry(dst)
	if err != nil {
		if !errors.Is(err, index.ErrEntryNotFound) {
			return err
		}
		e = idx.Add(dst)
	}
	e.Hash = h
	e.Mode = mode
	e.ModifiedAt = info.ModTime()
	e.Size = uint32(info.Size())

	ns.l.Debug("staged", zap.String("path", dst), zap.Stringer("blob", h))
	return nil
}

func (ns *Namespace) writeBlob(src string, size int64) (plumbing.Hash, error) {
	storer := ns.repo().Storer
	obj := storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(size)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	f, err := ns.work.Open(src)
	if err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	_, err = io.Copy(w, f)
	_ = f.Close()
	if errClose := w.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return storer.SetEncodedObject(obj)
}

// unstage removes a path from the index, with everything under it
func unstage(idx *index.Index, rel string) {
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name == rel || strings.HasPrefix(e.Name, rel+"/") {
			continue
		}
		kept = append(kept, e)
	}
	idx.Entries = kept
}

// pruneConflicts removes index entries that cannot live with a file at rel:
// files named like one of its parents, and anything under rel.
func pruneConflicts(idx *index.Index, rel string) {
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if strings.HasPrefix(e.Name, rel+"/") || strings.HasPrefix(rel, e.Name+"/") {
			continue
		}
		kept = append(kept, e)
	}
	idx.Entries = kept
}
