// Package status exports errors produced by the fuse package.
package status

import (
	"github.com/oneconcern/gitfs/pkg/errors"
)

var (
	// ErrNilNamespace is returned when building a file system without a namespace
	ErrNilNamespace = errors.New("namespace is nil")

	// ErrNotMounted is returned when waiting on a file system that has not been mounted
	ErrNotMounted = errors.New("file system is not mounted")

	// ErrUnexpectedUpdate indicates that an inode table received the same key twice while populating the file system
	ErrUnexpectedUpdate = errors.New("unexpected update of inode tables")

	// ErrReadAt is an error while performing a ReadAt operation on a file of the snapshot
	ErrReadAt = errors.New("error in snapshot ReadAt")
)
