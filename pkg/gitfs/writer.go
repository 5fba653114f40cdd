package gitfs

import (
	"io"
	"os"
	"path"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

// staging files are created beside their target and never committed
const stagingPrefix = ".gitfs-"

// Writer writes content to the working tree.
//
// Nothing reaches the working tree or the repository until Finalize is called:
// bytes go to a staging file, moved over the target on Finalize.
// Closing a Writer without finalizing it discards the staging file.
type Writer struct {
	afero.File

	ns   *Namespace
	rel  string
	mode os.FileMode
	size int64
	done bool
}

// OpenWriter prepares to write the content of some path. When appending, the written bytes
// follow the current content of the working copy.
func (ns *Namespace) OpenWriter(p string, appending bool) (w *Writer, err error) {
	defer ns.track("OpenWriter")(&err)

	if _, err = ns.mutable(); err != nil {
		return nil, err
	}
	rel, err := ns.mutablePath(p)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(0o644)
	info, err := ns.work.Stat(rel)
	switch {
	case err == nil && info.IsDir():
		return nil, status.ErrInvalidEntryKind.WrapMessage("%s is a directory", ns.absolute(rel))
	case err == nil:
		mode = info.Mode().Perm()
	case os.IsNotExist(err):
		info = nil
	default:
		return nil, err
	}

	dir := path.Dir(rel)
	if err = ns.work.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	staging, err := afero.TempFile(ns.work, dir, stagingPrefix)
	if err != nil {
		return nil, err
	}

	w = &Writer{File: staging, ns: ns, rel: rel, mode: mode}
	if appending && info != nil {
		if err = w.copyCurrent(); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	ns.l.Debug("writer opened", zap.String("path", rel), zap.String("staging", staging.Name()), zap.Bool("append", appending))
	return w, nil
}

func (w *Writer) copyCurrent() error {
	current, err := w.ns.work.Open(w.rel)
	if err != nil {
		return err
	}
	defer func() { _ = current.Close() }()

	n, err := io.Copy(w.File, current)
	w.size += n
	return err
}

// Name of the written file in the namespace
func (w *Writer) Name() string {
	return w.ns.absolute(w.rel)
}

// Write bytes to the staging file
func (w *Writer) Write(b []byte) (int, error) {
	if w.done {
		return 0, status.ErrFinalized
	}
	n, err := w.File.Write(b)
	w.size += int64(n)
	return n, err
}

// WriteString to the staging file
func (w *Writer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Finalize moves the written content in place then commits it.
// An empty message yields a default commit message.
func (w *Writer) Finalize(message string) (h plumbing.Hash, err error) {
	if w.done {
		return plumbing.ZeroHash, status.ErrFinalized
	}
	w.done = true
	staging := w.File.Name()

	if err = w.File.Close(); err != nil {
		_ = w.ns.work.Remove(staging)
		return plumbing.ZeroHash, err
	}
	if err = w.ns.work.Chmod(staging, w.mode); err != nil {
		_ = w.ns.work.Remove(staging)
		return plumbing.ZeroHash, err
	}
	if err = w.ns.work.Rename(staging, w.rel); err != nil {
		_ = w.ns.work.Remove(staging)
		return plumbing.ZeroHash, err
	}

	h, err = w.ns.CommitAdd(w.rel, message)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if w.ns.MetricsEnabled() {
		w.ns.m.Volume.Files.Inc("write")
		w.ns.m.Volume.Files.Size(w.size, "write")
	}
	return h, nil
}

// Close abandons an unfinalized write. Closing a finalized writer is a no-op.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	staging := w.File.Name()
	err := w.File.Close()
	if errRemove := w.ns.work.Remove(staging); err == nil {
		err = errRemove
	}
	w.ns.l.Debug("write abandoned", zap.String("path", w.rel))
	return err
}
