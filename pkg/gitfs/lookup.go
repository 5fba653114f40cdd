package gitfs

import (
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

// WalkFunc is called for every entry visited by Walk.
// Returning fs.SkipDir on a directory skips its children.
type WalkFunc func(Entry) error

func absent(rel string) Entry {
	return Entry{Path: rel, Name: path.Base(rel), Kind: Absent}
}

// find descends the snapshot tree one segment at a time
func (ns *Namespace) find(rel string) (Entry, error) {
	tree := ns.snapshot.Tree
	if rel == "" {
		return Entry{Name: rootName, Kind: Directory, ID: tree.Hash, Mode: filemode.Dir}, nil
	}

	segments := strings.Split(rel, "/")
	last := len(segments) - 1
	for i, segment := range segments {
		te := findInTree(tree, segment)
		if te == nil {
			return absent(rel), nil
		}
		if i == last {
			return ns.entryOf(rel, te)
		}
		if te.Mode != filemode.Dir {
			return absent(rel), nil
		}

		var err error
		tree, err = ns.repo().TreeObject(te.Hash)
		if err != nil {
			return Entry{}, err
		}
	}
	return absent(rel), nil
}

func findInTree(tree *object.Tree, name string) *object.TreeEntry {
	for i := range tree.Entries {
		if tree.Entries[i].Name == name {
			return &tree.Entries[i]
		}
	}
	return nil
}

func (ns *Namespace) entryOf(rel string, te *object.TreeEntry) (Entry, error) {
	e := Entry{
		Path: rel,
		Name: te.Name,
		Kind: kindOf(te.Mode),
		ID:   te.Hash,
		Mode: te.Mode,
	}
	if !e.Kind.IsFile() {
		if e.Kind == Absent {
			return absent(rel), nil
		}
		return e, nil
	}

	blob, err := ns.repo().BlobObject(te.Hash)
	if err != nil {
		return Entry{}, err
	}
	e.Size = blob.Size
	return e, nil
}

func (ns *Namespace) lookup(p string) (Entry, error) {
	if err := ns.ensureSnapshot(); err != nil {
		return Entry{}, err
	}
	rel, _, err := ns.relative(p)
	if err != nil {
		return Entry{}, err
	}
	return ns.find(rel)
}

// Stat returns the entry at some path. A path which is not in the snapshot yields an Absent entry and no error.
func (ns *Namespace) Stat(p string) (e Entry, err error) {
	defer ns.track("Stat")(&err)
	return ns.lookup(p)
}

// Exists tells if a path is in the snapshot
func (ns *Namespace) Exists(p string) (bool, error) {
	e, err := ns.Stat(p)
	if err != nil {
		return false, err
	}
	return e.Exists(), nil
}

// Type of the entry at some path
func (ns *Namespace) Type(p string) (Kind, error) {
	e, err := ns.Stat(p)
	if err != nil {
		return Absent, err
	}
	return e.Kind, nil
}

func (ns *Namespace) treeOf(e Entry) (*object.Tree, error) {
	if !e.Exists() {
		return nil, status.ErrNotExist.WrapMessage("%s", ns.absolute(e.Path))
	}
	if e.Kind != Directory {
		return nil, status.ErrNotDirectory.WrapMessage("%s is %s", ns.absolute(e.Path), e.Kind)
	}
	if e.Path == "" {
		return ns.snapshot.Tree, nil
	}
	return ns.repo().TreeObject(e.ID)
}

func (ns *Namespace) children(e Entry) ([]Entry, error) {
	tree, err := ns.treeOf(e)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(tree.Entries))
	for i := range tree.Entries {
		child, err := ns.entryOf(path.Join(e.Path, tree.Entries[i].Name), &tree.Entries[i])
		if err != nil {
			return nil, err
		}
		if !child.Exists() {
			continue
		}
		entries = append(entries, child)
	}
	return entries, nil
}

// ReadDir returns the children of a directory, in tree order
func (ns *Namespace) ReadDir(p string) (entries []Entry, err error) {
	defer ns.track("ReadDir")(&err)

	e, err := ns.lookup(p)
	if err != nil {
		return nil, err
	}
	return ns.children(e)
}

// ListChildren returns the names of the children of a directory, in tree order.
// Names are escaped to be used as path segments in URIs.
func (ns *Namespace) ListChildren(p string) ([]string, error) {
	entries, err := ns.ReadDir(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, url.PathEscape(e.Name))
	}
	return names, nil
}

// Walk visits the entries under some path, depth-first, parents before children
func (ns *Namespace) Walk(p string, fn WalkFunc) (err error) {
	defer ns.track("Walk")(&err)

	e, err := ns.lookup(p)
	if err != nil {
		return err
	}
	if !e.Exists() {
		return status.ErrNotExist.WrapMessage("%s", ns.absolute(e.Path))
	}
	return ns.walk(e, fn)
}

func (ns *Namespace) walk(e Entry, fn WalkFunc) error {
	if err := fn(e); err != nil {
		if err == fs.SkipDir && e.IsDir() {
			return nil
		}
		return err
	}
	if !e.IsDir() {
		return nil
	}

	children, err := ns.children(e)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := ns.walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
