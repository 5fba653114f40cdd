package fuse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/oneconcern/gitfs/pkg/convert"
	"github.com/oneconcern/gitfs/pkg/gitfs"
	"github.com/oneconcern/gitfs/pkg/metrics"
)

const (
	statBlockSize uint32 = 4096
	statIOSize    uint32 = 65536
)

type fsCommon struct {
	fuseutil.NotImplementedFileSystem

	// Backing namespace for this FS.
	ns *gitfs.Namespace

	// Fast lookup of parent iNode id + child name, returns iNode of child. This is a common operation and it's speed is
	// important.
	lookupTree *iradix.Tree

	// logger
	l *zap.Logger

	metrics.Enable
	m *M
}

func (fs *fsCommon) GetXattr(
	ctx context.Context,
	op *fuseops.GetXattrOp) error {
	// git trees carry no extended attributes
	return nil
}

func (fs *fsCommon) ListXattr(
	ctx context.Context,
	op *fuseops.ListXattrOp) error {
	return nil
}

func (fs *fsCommon) opStart(op interface{}) time.Time {
	logger := fs.l.With(zap.String("Request", fmt.Sprintf("%T", op)))
	switch t := op.(type) {
	case *fuseops.StatFSOp:
		logger.Debug("Start")
	case *fuseops.ReadFileOp:
		logger.Debug("Start", zap.Uint64("inode", uint64(t.Inode)), zap.Int("buffer", len(t.Dst)), zap.Int64("offset", t.Offset))
	case *fuseops.ReadDirOp:
		logger.Debug("Start", zap.Uint64("inode", uint64(t.Inode)), zap.Uint64("offset", uint64(t.Offset)))
	case *fuseops.LookUpInodeOp:
		logger.Debug("Start", zap.Uint64("parent", uint64(t.Parent)), zap.String("child", t.Name))
	case *fuseops.GetInodeAttributesOp:
		logger.Debug("Start", zap.Uint64("id", uint64(t.Inode)))
	case *fuseops.ForgetInodeOp:
		logger.Debug("Start", zap.Uint64("id", uint64(t.Inode)))
	case *fuseops.OpenDirOp:
		logger.Debug("Start", zap.Uint64("id", uint64(t.Inode)))
	case *fuseops.ReleaseDirHandleOp:
		logger.Debug("Start", zap.Uint64("hndl", uint64(t.Handle)))
	case *fuseops.OpenFileOp:
		logger.Debug("Start", zap.Uint64("id", uint64(t.Inode)))
	case *fuseops.ReleaseFileHandleOp:
		logger.Debug("Start", zap.Uint64("hndl", uint64(t.Handle)))
	default:
		logger.Debug("Start")
	}
	return time.Now()
}

func (fs *fsCommon) opEnd(t0 time.Time, op interface{}, err error) {
	opName := fmt.Sprintf("%T", op)
	logger := fs.l.With(zap.String("Request", opName))
	switch t := op.(type) {
	case *fuseops.StatFSOp:
		logger.Debug("End", zap.Uint64("inodes", t.Inodes), zap.Uint64("blocks", t.Blocks), zap.Error(err))
	case *fuseops.ReadFileOp:
		logger.Debug("End", zap.Uint64("inode", uint64(t.Inode)), zap.Int64("offset", t.Offset),
			zap.Int("bytes", t.BytesRead), zap.Error(err))
	case *fuseops.ReadDirOp:
		logger.Debug("End", zap.Uint64("inode", uint64(t.Inode)), zap.Int("bytes", t.BytesRead), zap.Error(err))
	case *fuseops.LookUpInodeOp:
		logger.Debug("End", zap.Uint64("parent", uint64(t.Parent)), zap.String("child", t.Name),
			zap.Uint64("inode", uint64(t.Entry.Child)), zap.Error(err))
	case *fuseops.GetInodeAttributesOp:
		logger.Debug("End", zap.Uint64("id", uint64(t.Inode)), zap.Error(err))
	default:
		logger.Debug("End", zap.Error(err))
	}
	if fs.MetricsEnabled() {
		fs.m.Usage.UsedAll(t0, opName)(err)
	}
}

func formLookupKey(id fuseops.InodeID, childName string) []byte {
	i := formKey(id)
	c := convert.UnsafeStringToBytes(childName)
	return append(i, c...)
}

func formKey(id fuseops.InodeID) []byte {
	return convert.Uint64ToKey(uint64(id))
}
