package gitfs

import (
	"path"
	"strings"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

const rootName = "/"

func cleanAbs(p string) string {
	return path.Clean(rootName + p)
}

// ToRelative maps an absolute path of the namespace to a path relative to the root of the snapshot tree.
//
// The root itself maps to the empty string, with isRoot set. Paths that do not live under
// the root yield status.ErrOutsideRoot.
func ToRelative(root, absolutePath string) (rel string, isRoot bool, err error) {
	root = cleanAbs(root)
	p := cleanAbs(absolutePath)

	switch {
	case p == root:
		return "", true, nil
	case root == rootName:
		return p[1:], false, nil
	case strings.HasPrefix(p, root+"/"):
		return p[len(root)+1:], false, nil
	default:
		return "", false, status.ErrOutsideRoot.WrapMessage("%s is not under %s", p, root)
	}
}

// relative resolves a path of the namespace. Relative paths are considered from the root.
func (ns *Namespace) relative(p string) (string, bool, error) {
	if !path.IsAbs(p) {
		p = path.Join(ns.root, p)
	}
	return ToRelative(ns.root, p)
}

// absolute is the inverse of relative
func (ns *Namespace) absolute(rel string) string {
	return path.Join(ns.root, rel)
}
