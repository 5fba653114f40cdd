package gitfs

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

const tempPrefix = "gitfs-"

func checkContent(e Entry) error {
	if !e.Kind.IsFile() {
		return status.ErrInvalidEntryKind.WrapMessage("%q is %s", e.Path, e.Kind)
	}
	return nil
}

// Size of the content of a file entry
func (ns *Namespace) Size(e Entry) (int64, error) {
	if err := checkContent(e); err != nil {
		return 0, err
	}
	return e.Size, nil
}

// OpenStream opens the content of a file entry. Every stream is an independent reader.
func (ns *Namespace) OpenStream(e Entry) (rdr io.ReadCloser, err error) {
	defer ns.track("OpenStream")(&err)

	if err = checkContent(e); err != nil {
		return nil, err
	}
	if err = ns.ensureSnapshot(); err != nil {
		return nil, err
	}

	blob, err := ns.repo().BlobObject(e.ID)
	if err != nil {
		return nil, err
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: r, done: ns.trackIO("read")}, nil
}

// Open the content at some path
func (ns *Namespace) Open(p string) (io.ReadCloser, error) {
	e, err := ns.Stat(p)
	if err != nil {
		return nil, err
	}
	if !e.Exists() {
		return nil, status.ErrNotExist.WrapMessage("%s", ns.absolute(e.Path)).Wrap(os.ErrNotExist)
	}
	return ns.OpenStream(e)
}

// ReadFile reads the whole content at some path
func (ns *Namespace) ReadFile(p string) ([]byte, error) {
	rdr, err := ns.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rdr.Close() }()
	return io.ReadAll(rdr)
}

// OpenRandomAccess copies the content at some path to a temporary file, which supports
// seeking and reading at offsets. The copy is removed when the returned file is closed.
func (ns *Namespace) OpenRandomAccess(p string) (afero.File, error) {
	e, err := ns.Stat(p)
	if err != nil {
		return nil, err
	}
	if !e.Exists() {
		return nil, status.ErrNotExist.WrapMessage("%s", ns.absolute(e.Path)).Wrap(os.ErrNotExist)
	}

	rdr, err := ns.OpenStream(e)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rdr.Close() }()

	tmp, err := afero.TempFile(ns.tmp, "", tempPrefix)
	if err != nil {
		return nil, err
	}
	name := tmp.Name()
	_, err = io.Copy(tmp, rdr)
	if errClose := tmp.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		_ = ns.tmp.Remove(name)
		return nil, err
	}

	// reopened read-only
	copied, err := ns.tmp.Open(name)
	if err != nil {
		_ = ns.tmp.Remove(name)
		return nil, err
	}
	ns.l.Debug("random access copy", zap.String("path", ns.absolute(e.Path)), zap.String("copy", name))

	return &randomAccessFile{
		File:    copied,
		fs:      ns.tmp,
		name:    ns.absolute(e.Path),
		info:    ns.fileInfo(e),
		tmpName: name,
	}, nil
}

type randomAccessFile struct {
	afero.File
	fs      afero.Fs
	name    string
	tmpName string
	info    os.FileInfo
}

func (f *randomAccessFile) Name() string {
	return f.name
}

func (f *randomAccessFile) Stat() (os.FileInfo, error) {
	return f.info, nil
}

func (f *randomAccessFile) Close() error {
	err := f.File.Close()
	if errRemove := f.fs.Remove(f.tmpName); err == nil {
		err = errRemove
	}
	return err
}

type countingReader struct {
	io.ReadCloser
	n    int64
	err  error
	done func(int64, error)
}

func (r *countingReader) Read(b []byte) (int, error) {
	n, err := r.ReadCloser.Read(b)
	r.n += int64(n)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

func (r *countingReader) Close() error {
	err := r.ReadCloser.Close()
	r.done(r.n, r.err)
	return err
}
