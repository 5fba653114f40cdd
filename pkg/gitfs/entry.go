package gitfs

import (
	"os"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Kind of entry in a snapshot
type Kind uint8

// Entry kinds
const (
	Absent Kind = iota
	Directory
	RegularFile
	ExecutableFile
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case RegularFile:
		return "file"
	case ExecutableFile:
		return "executable"
	default:
		return "absent"
	}
}

// IsFile tells if this kind of entry has some content
func (k Kind) IsFile() bool {
	return k == RegularFile || k == ExecutableFile
}

func kindOf(mode filemode.FileMode) Kind {
	switch mode {
	case filemode.Dir:
		return Directory
	case filemode.Executable:
		return ExecutableFile
	case filemode.Regular, filemode.Deprecated:
		return RegularFile
	default:
		// symlinks, submodules
		return Absent
	}
}

// Entry in a snapshot. Entries with kind Absent only carry their path.
type Entry struct {
	// Path relative to the root of the snapshot. The root has an empty path.
	Path string
	Name string
	Kind Kind
	ID   plumbing.Hash
	Size int64
	Mode filemode.FileMode
}

// Exists is false for absent entries
func (e Entry) Exists() bool {
	return e.Kind != Absent
}

// IsDir tells if this entry is a directory
func (e Entry) IsDir() bool {
	return e.Kind == Directory
}

// FileMode renders the kind of entry as permissions bits
func (e Entry) FileMode() os.FileMode {
	switch e.Kind {
	case Directory:
		return os.ModeDir | 0o755
	case ExecutableFile:
		return 0o755
	default:
		return 0o644
	}
}
