package fuse

import (
	"io"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/fuse/status"
)

func (fs *readOnlyFsInternal) initCache() error {
	var err error
	fs.cache, err = lru.NewWithEvict(fs.lruSize, func(key interface{}, value interface{}) {
		file := value.(afero.File)
		if fs.MetricsEnabled() {
			fs.m.Volume.Copies.Inc("evict")
		}
		if err := file.Close(); err != nil {
			fs.l.Warn("could not release random access copy", zap.Any("inode", key), zap.Error(err))
		}
	})
	return err
}

// copyOf yields a random access copy of a file, from the cache if possible
func (fs *readOnlyFsInternal) copyOf(file *FsEntry) (afero.File, error) {
	if cached, ok := fs.cache.Get(file.iNode); ok {
		return cached.(afero.File), nil
	}

	copied, err := fs.ns.OpenRandomAccess(file.fullPath)
	if err != nil {
		return nil, err
	}
	if fs.MetricsEnabled() {
		fs.m.Volume.Copies.Inc("copy")
		fs.m.Volume.Copies.Size(int64(file.attributes.Size), "copy")
	}
	fs.cache.Add(file.iNode, copied)
	return copied, nil
}

// readAt reads some file data at an offset. Reading past the end of the file is not an error.
func (fs *readOnlyFsInternal) readAt(file *FsEntry, destination []byte, offset int64) (n int, err error) {
	logger := fs.l.With(
		zap.String("file", file.fullPath),
		zap.Uint64("inode", uint64(file.iNode)),
	)

	if fs.MetricsEnabled() {
		defer func(t0 time.Time) {
			fs.m.Volume.IO.IORecord(t0, "read")(int64(n), err)
		}(time.Now())
	}

	if offset >= int64(file.attributes.Size) {
		return 0, nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	reader, err := fs.copyOf(file)
	if err != nil {
		return 0, status.ErrReadAt.WrapWithLog(logger, err)
	}

	n, err = reader.ReadAt(destination, offset)
	if err != nil && err != io.EOF {
		return n, status.ErrReadAt.WrapWithLog(logger, err, zap.Int64("offset", offset))
	}

	logger.Debug("read at", zap.Int("bytes", n))
	return n, nil
}
