package fuse

import (
	"github.com/jacobsa/fuse"
	"go.uber.org/zap"
)

// Option for the file system
type Option func(*readOnlyFsInternal)

// Logger for this file system
func Logger(l *zap.Logger) Option {
	return func(fs *readOnlyFsInternal) {
		if l == nil {
			return
		}
		fs.l = l
	}
}

// CacheSize tunes the number of files kept open for random access reads.
// Values lower than 1 are ignored.
func CacheSize(size int) Option {
	return func(fs *readOnlyFsInternal) {
		if size < 1 {
			return
		}
		fs.lruSize = size
	}
}

// WithMetrics toggles metrics on the fuse package
func WithMetrics(enabled bool) Option {
	return func(fs *readOnlyFsInternal) {
		fs.EnableMetrics(enabled)
	}
}

// MountOption enables options when mounting the file system
type MountOption func(*fuse.MountConfig)

// AllowOther lets other users access the mount (requires user_allow_other in /etc/fuse.conf)
func AllowOther() MountOption {
	return func(cfg *fuse.MountConfig) {
		if cfg.Options == nil {
			cfg.Options = make(map[string]string)
		}
		cfg.Options["allow_other"] = ""
	}
}

// FSName overrides the name of the mounted file system, as shown by mount(8)
func FSName(name string) MountOption {
	return func(cfg *fuse.MountConfig) {
		cfg.FSName = name
	}
}
