// Package fuse mounts a gitfs namespace as a read-only file system.
package fuse

import (
	"context"
	"os"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	jfuse "github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/oneconcern/gitfs/pkg/fuse/status"
	"github.com/oneconcern/gitfs/pkg/gitfs"
)

const (
	// Cache duration
	cacheYearLong                    = 365 * 24 * time.Hour
	dirLinkCount     uint32          = 2
	fileLinkCount    uint32          = 1
	firstINode       fuseops.InodeID = 1023
	dirReadOnlyMode                  = 0555 | os.ModeDir
	fileReadOnlyMode                 = 0444
	execReadOnlyMode                 = 0555
	mountDirMode                     = 0755
	defaultCacheSize                 = 64
	subType                          = "gitfs"
)

// MountableFS knows how to mount and unmount a file system
type MountableFS interface {
	Mount(string, ...MountOption) error
	Unmount(string) error
}

var _ MountableFS = &ReadOnlyFS{}

// ReadOnlyFS is the virtual read-only filesystem created on top of a namespace snapshot.
type ReadOnlyFS struct {
	mfs        *jfuse.MountedFileSystem // The mounted filesystem
	fsInternal *readOnlyFsInternal      // The core of the filesystem
	server     jfuse.Server             // Fuse server
}

// NewReadOnlyFS creates a new file system serving the snapshot of a namespace.
//
// The tree of the snapshot is walked once: the namespace is only used afterwards to read file contents.
func NewReadOnlyFS(ns *gitfs.Namespace, opts ...Option) (*ReadOnlyFS, error) {
	if ns == nil {
		return nil, status.ErrNilNamespace
	}

	fs := defaultReadOnlyFS(ns)
	for _, apply := range opts {
		apply(fs)
	}

	if fs.MetricsEnabled() {
		fs.m = fs.EnsureMetrics("fuse", &M{}).(*M)
	}

	snapshot, err := ns.Snapshot()
	if err != nil {
		return nil, err
	}
	fs.l = fs.l.With(zap.String("snapshot", snapshot.String()))
	fs.mtime = snapshot.Time()
	if fs.mtime.IsZero() {
		fs.mtime = time.Now()
	}

	if err := fs.initCache(); err != nil {
		return nil, err
	}

	return fs.populateFS()
}

// Mount a ReadOnlyFS
func (dfs *ReadOnlyFS) Mount(path string, opts ...MountOption) error {
	return dfs.MountReadOnly(path, opts...)
}

func defaultMountConfig(fsName, volumeName string) *jfuse.MountConfig {
	return &jfuse.MountConfig{
		Subtype:    subType, // mount appears as "fuse.gitfs"
		ReadOnly:   true,
		FSName:     fsName,
		VolumeName: volumeName, // NOTE: OSX only option
	}
}

// MountReadOnly a ReadOnlyFS
func (dfs *ReadOnlyFS) MountReadOnly(path string, opts ...MountOption) error {
	if err := os.MkdirAll(path, mountDirMode); err != nil {
		return err
	}

	var fsName string
	if h, err := dfs.fsInternal.ns.Handle(); err == nil {
		fsName = h.GitDir()
	}
	mountCfg := defaultMountConfig(fsName, dfs.fsInternal.ns.Root())
	for _, apply := range opts {
		apply(mountCfg)
	}

	el, _ := zap.NewStdLogAt(dfs.fsInternal.l.
		With(zap.String("fuse", "read-only mount"), zap.String("mountpoint", path)), zapcore.ErrorLevel)
	dl, _ := zap.NewStdLogAt(dfs.fsInternal.l.
		With(zap.String("fuse-debug", "read-only mount"), zap.String("mountpoint", path)), zapcore.DebugLevel)
	mountCfg.ErrorLogger = el
	mountCfg.DebugLogger = dl

	var err error
	dfs.mfs, err = jfuse.Mount(path, dfs.server, mountCfg)
	if err == nil {
		dfs.fsInternal.l.Info("mounting", zap.String("mountpoint", path))
	}
	return err
}

// Unmount a ReadOnlyFS
func (dfs *ReadOnlyFS) Unmount(path string) error {
	dfs.fsInternal.l.Info("unmounting", zap.String("mountpoint", path))
	return jfuse.Unmount(path)
}

// JoinMount blocks until a mounted file system has been unmounted.
// It does not return successfully until all ops read from the connection have been responded to
// (i.e. the file system server has finished processing all in-flight ops).
func (dfs *ReadOnlyFS) JoinMount(ctx context.Context) error {
	if dfs.mfs == nil {
		return status.ErrNotMounted
	}
	return dfs.mfs.Join(ctx)
}

// Server exposes the fuse server of this file system
func (dfs *ReadOnlyFS) Server() jfuse.Server {
	return dfs.server
}

// Close releases the cached random-access copies of files
func (dfs *ReadOnlyFS) Close() error {
	dfs.fsInternal.Destroy()
	return nil
}

var _ fuseutil.FileSystem = &readOnlyFsInternal{}
