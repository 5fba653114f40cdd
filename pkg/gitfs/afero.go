package gitfs

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

const aferoFsName = "gitfs"

var (
	_ afero.Fs   = &aferoFs{}
	_ afero.File = &dirFile{}
	_ afero.File = &writeFile{}
)

// NewAferoFs exposes a namespace as an afero.Fs.
//
// Reads serve the snapshot. Writes go to the working tree and are committed when
// the written file is closed. Directory removal and renaming are committed right away.
func NewAferoFs(ns *Namespace) afero.Fs {
	return &aferoFs{ns: ns}
}

type aferoFs struct {
	ns *Namespace
}

// pathError reports missing paths as os.ErrNotExist, so that os.IsNotExist holds
func pathError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		err = os.ErrNotExist
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}

func (a *aferoFs) Name() string {
	return aferoFsName
}

func (a *aferoFs) Stat(name string) (os.FileInfo, error) {
	e, err := a.ns.Stat(name)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	if !e.Exists() {
		return nil, pathError("stat", name, os.ErrNotExist)
	}
	return a.ns.fileInfo(e), nil
}

func (a *aferoFs) Open(name string) (afero.File, error) {
	return a.OpenFile(name, os.O_RDONLY, 0)
}

func (a *aferoFs) Create(name string) (afero.File, error) {
	return a.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (a *aferoFs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return a.openWriter(name, flag)
	}

	e, err := a.ns.Stat(name)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	switch {
	case !e.Exists():
		return nil, pathError("open", name, os.ErrNotExist)
	case e.IsDir():
		children, err := a.ns.ReadDir(name)
		if err != nil {
			return nil, pathError("open", name, err)
		}
		infos := make([]os.FileInfo, 0, len(children))
		for _, child := range children {
			infos = append(infos, a.ns.fileInfo(child))
		}
		return &dirFile{name: a.ns.absolute(e.Path), info: a.ns.fileInfo(e), entries: infos}, nil
	default:
		f, err := a.ns.OpenRandomAccess(name)
		if err != nil {
			return nil, pathError("open", name, err)
		}
		return f, nil
	}
}

func (a *aferoFs) openWriter(name string, flag int) (afero.File, error) {
	if flag&os.O_CREATE == 0 {
		if _, err := a.ns.mutable(); err != nil {
			return nil, pathError("open", name, err)
		}
		if _, err := a.ns.existing(name); err != nil {
			return nil, pathError("open", name, err)
		}
	}

	keep := flag&os.O_TRUNC == 0
	w, err := a.ns.OpenWriter(name, keep)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	if keep && flag&os.O_APPEND == 0 {
		if _, err = w.Seek(0, io.SeekStart); err != nil {
			_ = w.Close()
			return nil, pathError("open", name, err)
		}
	}
	return &writeFile{Writer: w}, nil
}

func (a *aferoFs) Mkdir(name string, _ os.FileMode) error {
	return pathError("mkdir", name, a.ns.Mkdir(name))
}

func (a *aferoFs) MkdirAll(name string, _ os.FileMode) error {
	if _, isRoot, err := a.ns.relative(name); err == nil && isRoot {
		return nil
	}
	return pathError("mkdir", name, a.ns.Mkdir(name))
}

func (a *aferoFs) Remove(name string) error {
	_, err := a.ns.Delete(name, "")
	return pathError("remove", name, err)
}

func (a *aferoFs) RemoveAll(name string) error {
	_, err := a.ns.Delete(name, "")
	return pathError("remove", name, err)
}

func (a *aferoFs) Rename(oldname, newname string) error {
	_, err := a.ns.Rename(oldname, newname, "")
	if err != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}
	return nil
}

func (a *aferoFs) Chtimes(name string, _, mtime time.Time) error {
	return pathError("chtimes", name, a.ns.SetLastModified(name, mtime))
}

func (a *aferoFs) Chmod(name string, _ os.FileMode) error {
	return pathError("chmod", name, status.ErrNotSupported)
}

func (a *aferoFs) Chown(name string, _, _ int) error {
	return pathError("chown", name, status.ErrNotSupported)
}

// writeFile commits on Close
type writeFile struct {
	*Writer
}

func (f *writeFile) Close() error {
	_, err := f.Finalize("")
	return err
}

// fileInfo describes a snapshot entry
type fileInfo struct {
	e       Entry
	modTime time.Time
}

func (ns *Namespace) fileInfo(e Entry) os.FileInfo {
	var t time.Time
	if ns.snapshot != nil {
		t = ns.snapshot.Time()
	}
	return &fileInfo{e: e, modTime: t}
}

func (fi *fileInfo) Name() string       { return fi.e.Name }
func (fi *fileInfo) Size() int64        { return fi.e.Size }
func (fi *fileInfo) Mode() os.FileMode  { return fi.e.FileMode() }
func (fi *fileInfo) ModTime() time.Time { return fi.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.e.IsDir() }

// Sys returns the Entry
func (fi *fileInfo) Sys() interface{} { return fi.e }

// dirFile lists a snapshot directory
type dirFile struct {
	name    string
	info    os.FileInfo
	entries []os.FileInfo
	offset  int
}

func (d *dirFile) Name() string               { return d.name }
func (d *dirFile) Stat() (os.FileInfo, error) { return d.info, nil }
func (d *dirFile) Close() error               { return nil }
func (d *dirFile) Sync() error                { return nil }

func (d *dirFile) isDir(op string) error {
	return pathError(op, d.name, syscall.EISDIR)
}

func (d *dirFile) Read([]byte) (int, error)           { return 0, d.isDir("read") }
func (d *dirFile) ReadAt([]byte, int64) (int, error)  { return 0, d.isDir("read") }
func (d *dirFile) Write([]byte) (int, error)          { return 0, d.isDir("write") }
func (d *dirFile) WriteAt([]byte, int64) (int, error) { return 0, d.isDir("write") }
func (d *dirFile) WriteString(string) (int, error)    { return 0, d.isDir("write") }
func (d *dirFile) Seek(int64, int) (int64, error)     { return 0, d.isDir("seek") }
func (d *dirFile) Truncate(int64) error               { return d.isDir("truncate") }

// Readdir follows os.File.Readdir: with count > 0, at most count entries are returned
// and io.EOF signals the end of the listing.
func (d *dirFile) Readdir(count int) ([]os.FileInfo, error) {
	remaining := d.entries[d.offset:]
	if count <= 0 {
		d.offset = len(d.entries)
		return remaining, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if count > len(remaining) {
		count = len(remaining)
	}
	d.offset += count
	return remaining[:count], nil
}

func (d *dirFile) Readdirnames(n int) ([]string, error) {
	infos, err := d.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}
