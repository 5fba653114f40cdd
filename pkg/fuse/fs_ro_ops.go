package fuse

import (
	"context"
	"os"
	"path"
	"sync"
	"time"

	iradix "github.com/hashicorp/go-immutable-radix"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	jfuse "github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/oneconcern/gitfs/pkg/convert"
	"github.com/oneconcern/gitfs/pkg/dlogger"
	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/fuse/status"
	"github.com/oneconcern/gitfs/pkg/gitfs"
)

type readOnlyFsInternal struct {
	fsCommon

	// Get FsEntry for a directory path. This is needed to find the iNode of parents while walking the snapshot.
	// This tree is relinquished to gc after the fs is generated.
	fsDirStore *iradix.Tree

	// Get FsEntry for an iNode. Speed up stat and other calls keyed by iNode
	fsEntryStore *iradix.Tree

	// List of children for a given iNode. Maps inode id to list of children. This stitches the fuse FS together.
	// NOTE: since populateFS is not parallel and is computed before the FS is available,
	// this map does not need being protected from concurrent access.
	readDirMap map[fuseops.InodeID][]fuseutil.Dirent

	// time reported on all entries
	mtime time.Time

	// totals reported by StatFS
	inodeCount uint64
	totalSize  uint64

	// random-access copies of files, keyed by iNode.
	// The namespace is not safe for concurrent use: mu serializes reads.
	mu      sync.Mutex
	cache   *lru.Cache
	lruSize int
}

func defaultReadOnlyFS(ns *gitfs.Namespace) *readOnlyFsInternal {
	return &readOnlyFsInternal{
		fsCommon: fsCommon{
			ns:         ns,
			lookupTree: iradix.New(),
			l:          dlogger.MustGetLogger("info"),
		},
		readDirMap:   make(map[fuseops.InodeID][]fuseutil.Dirent),
		fsEntryStore: iradix.New(),
		fsDirStore:   iradix.New(),
		lruSize:      defaultCacheSize,
	}
}

func asFsEntry(p interface{}) *FsEntry {
	fe := p.(FsEntry)
	return &fe
}

func (fs *readOnlyFsInternal) getEntry(id fuseops.InodeID) (*FsEntry, bool) {
	e, found := fs.fsEntryStore.Get(formKey(id))
	if !found {
		return nil, false
	}
	return asFsEntry(e), true
}

func (fs *readOnlyFsInternal) StatFS(
	ctx context.Context,
	op *fuseops.StatFSOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	op.BlockSize = statBlockSize
	op.Blocks = (fs.totalSize + uint64(statBlockSize) - 1) / uint64(statBlockSize)
	op.BlocksFree = 0
	op.BlocksAvailable = 0
	op.IoSize = statIOSize
	op.Inodes = fs.inodeCount
	op.InodesFree = 0
	return nil
}

func (fs *readOnlyFsInternal) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	val, found := fs.lookupTree.Get(formLookupKey(op.Parent, op.Name))
	if !found {
		return jfuse.ENOENT
	}

	childEntry := asFsEntry(val)
	op.Entry.Child = childEntry.iNode
	op.Entry.Generation = 1
	op.Entry.Attributes = childEntry.attributes
	op.Entry.AttributesExpiration = time.Now().Add(cacheYearLong)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration
	return nil
}

func (fs *readOnlyFsInternal) GetInodeAttributes(
	ctx context.Context,
	op *fuseops.GetInodeAttributesOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	fe, found := fs.getEntry(op.Inode)
	if !found {
		return jfuse.ENOENT
	}
	op.AttributesExpiration = time.Now().Add(cacheYearLong)
	op.Attributes = fe.attributes
	return nil
}

func (fs *readOnlyFsInternal) ForgetInode(
	ctx context.Context,
	op *fuseops.ForgetInodeOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()
	return
}

func (fs *readOnlyFsInternal) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	fe, found := fs.getEntry(op.Inode)
	if !found {
		return jfuse.ENOENT
	}
	if !fe.isDir() {
		return jfuse.ENOTDIR
	}
	return nil
}

func (fs *readOnlyFsInternal) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	offset := int(op.Offset)
	children, found := fs.readDirMap[op.Inode]
	if !found {
		if fe, ok := fs.getEntry(op.Inode); ok && fe.isDir() {
			// empty directory
			return nil
		}
		return jfuse.ENOENT
	}

	if offset > len(children) {
		return jfuse.EINVAL
	}

	for i := offset; i < len(children); i++ {
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], children[i])
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *readOnlyFsInternal) ReleaseDirHandle(
	ctx context.Context,
	op *fuseops.ReleaseDirHandleOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()
	return
}

func (fs *readOnlyFsInternal) OpenFile(
	ctx context.Context,
	op *fuseops.OpenFileOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	fe, found := fs.getEntry(op.Inode)
	if !found {
		return jfuse.ENOENT
	}
	if fe.isDir() {
		return jfuse.EINVAL
	}

	// contents never change
	op.KeepPageCache = true

	if fs.MetricsEnabled() {
		fs.m.Volume.Files.Inc("open")
		fs.m.Volume.Files.Size(int64(fe.attributes.Size), "open")
	}
	return nil
}

func (fs *readOnlyFsInternal) ReadFile(
	ctx context.Context,
	op *fuseops.ReadFileOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()

	fe, found := fs.getEntry(op.Inode)
	if !found {
		return jfuse.ENOENT
	}
	if fe.isDir() {
		return jfuse.EINVAL
	}
	fs.l.Debug("reading file", zap.String("file", fe.fullPath), zap.Uint64("inode", uint64(fe.iNode)))

	op.BytesRead, err = fs.readAt(fe, op.Dst, op.Offset)
	if err != nil {
		return jfuse.EIO
	}
	return nil
}

func (fs *readOnlyFsInternal) ReleaseFileHandle(
	ctx context.Context,
	op *fuseops.ReleaseFileHandleOp) (err error) {
	t0 := fs.opStart(op)
	defer func() { fs.opEnd(t0, op, err) }()
	return
}

func (fs *readOnlyFsInternal) FlushFile(
	ctx context.Context,
	op *fuseops.FlushFileOp) (err error) {
	// noop
	return
}

// Destroy closes all cached random-access copies
func (fs *readOnlyFsInternal) Destroy() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.cache != nil {
		fs.cache.Purge()
	}
}

// FsEntry is a node in the filesystem
type FsEntry struct {
	kind gitfs.Kind

	// iNodes are allocated in the order of a depth-first walk of the snapshot tree.
	// Since trees are sorted, multiple mounts of the same snapshot preserve a fixed iNode for a file.
	iNode      fuseops.InodeID         // Unique ID for Fuse
	attributes fuseops.InodeAttributes // Fuse Attributes
	fullPath   string                  // Absolute path in the namespace
}

func (f FsEntry) isDir() bool {
	return f.kind == gitfs.Directory
}

func (fs *readOnlyFsInternal) newFsEntry(e gitfs.Entry, id fuseops.InodeID) FsEntry {
	var (
		mode      os.FileMode = fileReadOnlyMode
		linkCount             = fileLinkCount
		size                  = uint64(e.Size)
	)
	switch e.Kind {
	case gitfs.Directory:
		mode = dirReadOnlyMode
		linkCount = dirLinkCount
		size = uint64(statBlockSize)
	case gitfs.ExecutableFile:
		mode = execReadOnlyMode
	}

	return FsEntry{
		kind:     e.Kind,
		fullPath: path.Join(fs.ns.Root(), e.Path),
		iNode:    id,
		attributes: fuseops.InodeAttributes{
			Size:   size,
			Nlink:  linkCount,
			Mode:   mode,
			Atime:  fs.mtime,
			Mtime:  fs.mtime,
			Ctime:  fs.mtime,
			Crtime: fs.mtime,
			Uid:    uint32(os.Getuid()),
			Gid:    uint32(os.Getgid()),
		},
	}
}

// populateFSTxns holds  all the radix trees used during initialization
type populateFSTxns struct {
	dirStore     *iradix.Txn
	lookupTree   *iradix.Txn
	fsEntryStore *iradix.Txn
}

func (txns *populateFSTxns) commitToFS(fs *readOnlyFsInternal) {
	fs.fsEntryStore = txns.fsEntryStore.Commit()
	fs.lookupTree = txns.lookupTree.Commit()
	fs.fsDirStore = txns.dirStore.Commit()
}

func newFSTxns(fs *readOnlyFsInternal) *populateFSTxns {
	return &populateFSTxns{
		dirStore:     fs.fsDirStore.Txn(),
		lookupTree:   fs.lookupTree.Txn(),
		fsEntryStore: fs.fsEntryStore.Txn(),
	}
}

func parentPath(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

// populateFS is the top-level file system initialization method.
// It populates the file system with inodes constructed from a walk of the snapshot.
//
// Note that only trees are read at this stage: file contents are read on demand.
func (fs *readOnlyFsInternal) populateFS() (*ReadOnlyFS, error) {
	txns := newFSTxns(fs)
	next := firstINode

	fs.l.Info("Populating fs")
	err := fs.ns.Walk(fs.ns.Root(), func(e gitfs.Entry) error {
		if e.Path == "" {
			// Root points to itself
			return fs.insertDirEntry(txns, fuseops.RootInodeID, fs.newFsEntry(e, fuseops.RootInodeID), e.Path)
		}

		parent, found := txns.dirStore.Get(convert.UnsafeStringToBytes(parentPath(e.Path)))
		if !found {
			return status.ErrUnexpectedUpdate.
				WrapWithLog(fs.l, errors.New("parent visited after child: "+e.Path))
		}
		parentINode := asFsEntry(parent).iNode

		next++
		fsEntry := fs.newFsEntry(e, next)
		if e.IsDir() {
			return fs.insertDirEntry(txns, parentINode, fsEntry, e.Path)
		}
		fs.totalSize += fsEntry.attributes.Size
		return fs.insertFsEntry(txns, parentINode, fsEntry)
	})
	if err != nil {
		return nil, err
	}

	txns.commitToFS(fs)
	fs.inodeCount = uint64(fs.fsEntryStore.Len())

	// free this resource: it used only during FS setup
	fs.fsDirStore = nil
	fs.l.Info("Populating fs done", zap.Uint64("inodes", fs.inodeCount))

	return &ReadOnlyFS{
		fsInternal: fs,
		server:     fuseutil.NewFileSystemServer(fs),
	}, nil
}

func (fs *readOnlyFsInternal) insertDirEntry(
	txns *populateFSTxns,
	parentInode fuseops.InodeID,
	dirFsEntry FsEntry,
	rel string) error {

	pth := dirFsEntry.fullPath
	logger := fs.l.With(zap.String("fullPath", pth))
	logger.Debug("Inserting FSDirEntry",
		zap.Uint64("parentInode", uint64(parentInode)))

	if _, update := txns.dirStore.Insert([]byte(rel), dirFsEntry); update {
		return status.ErrUnexpectedUpdate.
			WrapWithLog(logger, errors.New("dirStore updates are not expected: "+pth))
	}

	if _, update := txns.fsEntryStore.Insert(formKey(dirFsEntry.iNode), dirFsEntry); update {
		return status.ErrUnexpectedUpdate.
			WrapWithLog(logger, errors.New("fsEntryStore updates are not expected: "+pth))
	}

	if dirFsEntry.iNode == fuseops.RootInodeID {
		return nil
	}

	base := path.Base(pth)
	if _, update := txns.lookupTree.Insert(formLookupKey(parentInode, base), dirFsEntry); update {
		return status.ErrUnexpectedUpdate.
			WrapWithLog(logger, errors.New("lookupTree updates are not expected: "+pth))
	}

	fs.appendDirent(parentInode, dirFsEntry.iNode, base, fuseutil.DT_Directory)
	return nil
}

func (fs *readOnlyFsInternal) insertFsEntry(
	txns *populateFSTxns,
	parentInode fuseops.InodeID,
	fsEntry FsEntry) error {
	pth := fsEntry.fullPath
	base := path.Base(pth)
	logger := fs.l.With(zap.String("fullPath", pth))

	logger.Debug("adding",
		zap.Uint64("parent", uint64(parentInode)),
		zap.Uint64("childInode", uint64(fsEntry.iNode)),
		zap.String("base", base))

	if _, update := txns.fsEntryStore.Insert(formKey(fsEntry.iNode), fsEntry); update {
		return status.ErrUnexpectedUpdate.
			WrapWithLog(logger, errors.New("fsEntryStore updates are not expected: "+pth))
	}

	if _, update := txns.lookupTree.Insert(formLookupKey(parentInode, base), fsEntry); update {
		return status.ErrUnexpectedUpdate.
			WrapWithLog(logger, errors.New("lookupTree updates are not expected: "+pth))
	}

	fs.appendDirent(parentInode, fsEntry.iNode, base, fuseutil.DT_File)
	return nil
}

func (fs *readOnlyFsInternal) appendDirent(parentInode, iNode fuseops.InodeID, name string, typ fuseutil.DirentType) {
	childEntries := fs.readDirMap[parentInode]
	childEntries = append(childEntries, fuseutil.Dirent{
		Offset: fuseops.DirOffset(len(childEntries) + 1),
		Inode:  iNode,
		Name:   name,
		Type:   typ,
	})
	fs.readDirMap[parentInode] = childEntries
}
