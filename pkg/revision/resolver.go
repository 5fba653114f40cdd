package revision

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.uber.org/zap"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

const (
	minAbbrev  = 4
	fullHexLen = 40
)

var (
	rexHex = regexp.MustCompile(`^[0-9a-fA-F]+$`)

	// only all-caps names are looked up at the top of the metadata directory (HEAD, ORIG_HEAD, ...)
	rexPseudoRef = regexp.MustCompile(`^[A-Z_]+$`)
)

// Option for the resolver
type Option func(*Resolver)

// Logger for the resolver
func Logger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.l = l
		}
	}
}

// Resolver resolves revision expressions against a repository
type Resolver struct {
	repo *git.Repository
	l    *zap.Logger
}

// NewResolver builds a resolver for a repository
func NewResolver(repo *git.Repository, opts ...Option) *Resolver {
	r := &Resolver{
		repo: repo,
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Resolve a revision expression in a repository.
// See NewResolver and Resolver.Resolve.
func Resolve(repo *git.Repository, expr string) (*Snapshot, error) {
	return NewResolver(repo).Resolve(expr)
}

// Resolve a revision expression to a snapshot.
//
// The empty expression resolves to the tip of the current branch.
//
// Unsupported syntax yields status.ErrUnsupportedReference. Unknown refs, missing objects
// and expressions that do not designate a tree yield status.ErrRevisionNotFound.
func (r *Resolver) Resolve(expr string) (*Snapshot, error) {
	e, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	obj, err := r.resolveBase(e)
	if err != nil {
		return nil, err
	}

	for _, s := range e.steps {
		obj, err = r.apply(obj, s)
		if err != nil {
			return nil, notFound(expr, err)
		}
	}

	snapshot, err := r.snapshot(obj)
	if err != nil {
		return nil, notFound(expr, err)
	}
	snapshot.Expression = expr

	r.l.Debug("revision resolved",
		zap.String("revision", expr),
		zap.Stringer("tree", snapshot.Tree.Hash),
		zap.Stringer("snapshot", snapshot.Hash()),
	)
	return snapshot, nil
}

func notFound(expr string, err error) error {
	e := status.ErrRevisionNotFound.WrapMessage("%q", expr)
	if err == nil {
		return e
	}
	return e.Wrap(err)
}

func (r *Resolver) resolveBase(e Expression) (object.Object, error) {
	if e.IsCurrentBranch() {
		ref, err := r.repo.Head()
		if err != nil {
			return nil, status.ErrRevisionNotFound.WrapMessage("current branch").Wrap(err)
		}
		return r.object(ref.Hash())
	}

	base := e.Base()
	if len(base) == fullHexLen && rexHex.MatchString(base) {
		obj, err := r.object(plumbing.NewHash(strings.ToLower(base)))
		if err != nil {
			return nil, notFound(e.String(), err)
		}
		return obj, nil
	}

	if ref := r.lookupRef(base); ref != nil {
		obj, err := r.object(ref.Hash())
		if err != nil {
			return nil, notFound(e.String(), err)
		}
		return obj, nil
	}

	if len(base) >= minAbbrev && rexHex.MatchString(base) {
		h, err := r.expandAbbrev(strings.ToLower(base))
		if err != nil {
			return nil, notFound(e.String(), err)
		}
		obj, err := r.object(h)
		if err != nil {
			return nil, notFound(e.String(), err)
		}
		return obj, nil
	}

	return nil, notFound(e.String(), nil)
}

// refCandidates lists the full names a short name may stand for, in lookup order
func refCandidates(name string) []plumbing.ReferenceName {
	candidates := make([]plumbing.ReferenceName, 0, 6)
	if rexPseudoRef.MatchString(name) || strings.HasPrefix(name, "refs/") {
		candidates = append(candidates, plumbing.ReferenceName(name))
	}
	for _, format := range []string{"refs/%s", "refs/tags/%s", "refs/heads/%s", "refs/remotes/%s", "refs/remotes/%s/HEAD"} {
		candidates = append(candidates, plumbing.ReferenceName(strings.Replace(format, "%s", name, 1)))
	}
	return candidates
}

func (r *Resolver) lookupRef(name string) *plumbing.Reference {
	for _, candidate := range refCandidates(name) {
		ref, err := r.repo.Reference(candidate, true)
		if err != nil {
			continue
		}
		r.l.Debug("ref found", zap.String("name", name), zap.Stringer("ref", ref.Name()))
		return ref
	}
	return nil
}

// expandAbbrev finds the unique object with some hex prefix
func (r *Resolver) expandAbbrev(prefix string) (plumbing.Hash, error) {
	iter, err := r.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var (
		found     plumbing.Hash
		ambiguous bool
	)
	err = iter.ForEach(func(o plumbing.EncodedObject) error {
		h := o.Hash()
		if !strings.HasPrefix(h.String(), prefix) || h == found {
			return nil
		}
		if !found.IsZero() {
			ambiguous = true
			return storer.ErrStop
		}
		found = h
		return nil
	})
	switch {
	case err != nil:
		return plumbing.ZeroHash, err
	case ambiguous:
		return plumbing.ZeroHash, fmt.Errorf("ambiguous object id %s", prefix)
	case found.IsZero():
		return plumbing.ZeroHash, plumbing.ErrObjectNotFound
	}
	return found, nil
}

func (r *Resolver) object(h plumbing.Hash) (object.Object, error) {
	return r.repo.Object(plumbing.AnyObject, h)
}

func (r *Resolver) apply(obj object.Object, s step) (object.Object, error) {
	switch s.kind {
	case stepParent:
		c, err := r.peelToCommit(obj)
		if err != nil {
			return nil, err
		}
		if s.n == 0 {
			return c, nil
		}
		return r.parent(c, s.n)

	case stepAncestor:
		c, err := r.peelToCommit(obj)
		if err != nil {
			return nil, err
		}
		for i := 0; i < s.n; i++ {
			if c, err = r.parent(c, 1); err != nil {
				return nil, err
			}
		}
		return c, nil

	default:
		return r.peel(obj, s.peel)
	}
}

func (r *Resolver) parent(c *object.Commit, n int) (*object.Commit, error) {
	if n > len(c.ParentHashes) {
		return nil, fmt.Errorf("commit %s has no parent #%d", c.Hash, n)
	}
	return r.repo.CommitObject(c.ParentHashes[n-1])
}

func (r *Resolver) peelTag(obj object.Object) (object.Object, error) {
	for {
		tag, isTag := obj.(*object.Tag)
		if !isTag {
			return obj, nil
		}
		target, err := r.object(tag.Target)
		if err != nil {
			return nil, err
		}
		obj = target
	}
}

func (r *Resolver) peelToCommit(obj object.Object) (*object.Commit, error) {
	peeled, err := r.peelTag(obj)
	if err != nil {
		return nil, err
	}
	c, ok := peeled.(*object.Commit)
	if !ok {
		return nil, fmt.Errorf("%s %s is not a commit", peeled.Type(), peeled.ID())
	}
	return c, nil
}

func (r *Resolver) peel(obj object.Object, target plumbing.ObjectType) (object.Object, error) {
	switch target {
	case plumbing.TagObject:
		if obj.Type() != plumbing.TagObject {
			return nil, fmt.Errorf("%s %s is not a tag", obj.Type(), obj.ID())
		}
		return obj, nil
	case peelAny:
		return r.peelTag(obj)
	case plumbing.CommitObject:
		return r.peelToCommit(obj)
	case plumbing.TreeObject:
		_, tree, err := r.peelToTree(obj)
		return tree, err
	default:
		peeled, err := r.peelTag(obj)
		if err != nil {
			return nil, err
		}
		if peeled.Type() != target {
			return nil, fmt.Errorf("%s %s is not a %s", peeled.Type(), peeled.ID(), target)
		}
		return peeled, nil
	}
}

// peelToTree returns the tree designated by some object, and the commit it comes from, if any
func (r *Resolver) peelToTree(obj object.Object) (*object.Commit, *object.Tree, error) {
	peeled, err := r.peelTag(obj)
	if err != nil {
		return nil, nil, err
	}
	switch o := peeled.(type) {
	case *object.Commit:
		tree, err := o.Tree()
		return o, tree, err
	case *object.Tree:
		return nil, o, nil
	default:
		return nil, nil, fmt.Errorf("%s %s does not name a tree", peeled.Type(), peeled.ID())
	}
}

func (r *Resolver) snapshot(obj object.Object) (*Snapshot, error) {
	commit, tree, err := r.peelToTree(obj)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Commit: commit, Tree: tree}, nil
}
