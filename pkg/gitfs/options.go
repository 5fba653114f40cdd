package gitfs

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option for a namespace
type Option func(*Namespace)

// GitDir sets the git metadata directory explicitly. It takes precedence over WorkDir.
func GitDir(dir string) Option {
	return func(ns *Namespace) {
		ns.loc.GitDir = dir
	}
}

// WorkTree sets the working tree explicitly
func WorkTree(dir string) Option {
	return func(ns *Namespace) {
		ns.loc.WorkTree = dir
	}
}

// WorkDir sets where to start searching for a repository
func WorkDir(dir string) Option {
	return func(ns *Namespace) {
		ns.loc.WorkDir = dir
	}
}

// Revision sets the revision expression for the snapshot. Defaults to the tip of the current branch.
func Revision(expr string) Option {
	return func(ns *Namespace) {
		ns.revision = expr
	}
}

// RootName sets the absolute name of the namespace root. Defaults to "/".
func RootName(root string) Option {
	return func(ns *Namespace) {
		if root != "" {
			ns.root = cleanAbs(root)
		}
	}
}

// Author sets the identity recorded on commits
func Author(name, email string) Option {
	return func(ns *Namespace) {
		ns.author.Name = name
		ns.author.Email = email
	}
}

// Logger for this namespace
func Logger(l *zap.Logger) Option {
	return func(ns *Namespace) {
		if l != nil {
			ns.l = l
		}
	}
}

// TempFs sets the file system holding random access copies. Defaults to the OS temp dir.
func TempFs(fs afero.Fs) Option {
	return func(ns *Namespace) {
		if fs != nil {
			ns.tmp = fs
		}
	}
}

// WithMetrics toggles metrics collection on the namespace
func WithMetrics(enabled bool) Option {
	return func(ns *Namespace) {
		ns.EnableMetrics(enabled)
	}
}
