// Package status exports errors produced by the gitfs packages.
package status

import (
	"github.com/oneconcern/gitfs/pkg/errors"
)

var (
	// ErrRepositoryNotFound indicates that no git metadata directory could be located
	ErrRepositoryNotFound = errors.New("git repository not found")

	// ErrBareRepository indicates that the repository has no working tree
	ErrBareRepository = errors.New("repository has no working tree")

	// ErrRevisionNotFound indicates that a revision expression does not name a tree
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrUnsupportedReference indicates a revision expression using unsupported syntax
	ErrUnsupportedReference = errors.New("unsupported revision expression")

	// ErrInvalidEntryKind indicates an operation on an entry of the wrong kind
	ErrInvalidEntryKind = errors.New("invalid entry kind for this operation")

	// ErrNotDirectory indicates a listing of something that is not a directory
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotExist indicates that a path does not exist in the snapshot
	ErrNotExist = errors.New("no such entry in snapshot")

	// ErrOutsideRoot indicates a path that does not live under the namespace root
	ErrOutsideRoot = errors.New("path is outside the namespace root")

	// ErrPartialCommit indicates that the index was updated but no commit could be recorded
	ErrPartialCommit = errors.New("index updated but commit failed")

	// ErrReadOnly indicates a mutation on a namespace without working tree
	ErrReadOnly = errors.New("namespace is read-only")

	// ErrClosed indicates an operation on a closed namespace
	ErrClosed = errors.New("namespace is closed")

	// ErrNotSupported indicates an operation that the namespace does not implement
	ErrNotSupported = errors.New("operation not supported")

	// ErrFinalized indicates an operation on a writer which was already finalized or closed
	ErrFinalized = errors.New("writer already closed")
)
