// Package revision resolves git revision expressions to tree snapshots.
//
// Supported expressions are a base followed by any number of suffixes.
//
// The base is one of: HEAD, a branch or tag short name, a full ref name (refs/...),
// a full or abbreviated object id (at least 4 hex digits).
//
// Suffixes: ^, ^n, ~, ~n, ^{commit}, ^{tree}, ^{tag}, ^{blob} and ^{}.
//
// Reflog selectors (@{...}), path selectors (:path), ranges and searches are not supported.
package revision

import (
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

type stepKind uint8

const (
	stepParent stepKind = iota
	stepAncestor
	stepPeel
)

// peelAny stands for ^{}: peel tags until something else is found
const peelAny = plumbing.AnyObject

type step struct {
	kind stepKind
	n    int
	peel plumbing.ObjectType
}

// Expression is a parsed revision expression
type Expression struct {
	raw   string
	base  string
	steps []step
}

// String representation of the expression, as parsed
func (e Expression) String() string {
	return e.raw
}

// Base of the expression, before any suffix. The empty string stands for the current branch.
func (e Expression) Base() string {
	return e.base
}

// IsCurrentBranch is true for the empty expression
func (e Expression) IsCurrentBranch() bool {
	return e.base == ""
}

// Parse a revision expression
func Parse(raw string) (Expression, error) {
	e := Expression{raw: raw}
	if raw == "" {
		return e, nil
	}

	switch {
	case strings.Contains(raw, "@{"):
		return e, status.ErrUnsupportedReference.WrapMessage("reflog selector in %q", raw)
	case strings.Contains(raw, ":"):
		return e, status.ErrUnsupportedReference.WrapMessage("path selector in %q", raw)
	case strings.Contains(raw, ".."):
		return e, status.ErrUnsupportedReference.WrapMessage("range in %q", raw)
	}

	cut := strings.IndexAny(raw, "^~")
	if cut < 0 {
		cut = len(raw)
	}
	e.base = raw[:cut]
	switch e.base {
	case "":
		return e, status.ErrUnsupportedReference.WrapMessage("missing base in %q", raw)
	case "@":
		e.base = plumbing.HEAD.String()
	}
	if err := validBase(e.base); err != nil {
		return e, status.ErrUnsupportedReference.WrapMessage("invalid name in %q", raw).Wrap(err)
	}

	steps, err := parseSuffixes(raw, raw[cut:])
	if err != nil {
		return e, err
	}
	e.steps = steps
	return e, nil
}

// validBase checks the base against git's ref name rules. Short names and object ids
// are checked as if they were branch names.
func validBase(base string) error {
	name := plumbing.ReferenceName(base)
	if name != plumbing.HEAD && !strings.HasPrefix(base, "refs/") {
		name = plumbing.NewBranchReferenceName(base)
	}
	return name.Validate()
}

func parseSuffixes(raw, suffix string) ([]step, error) {
	var steps []step

	for len(suffix) > 0 {
		op := suffix[0]
		suffix = suffix[1:]

		if op == '^' && strings.HasPrefix(suffix, "{") {
			end := strings.IndexByte(suffix, '}')
			if end < 0 {
				return nil, status.ErrUnsupportedReference.WrapMessage("unterminated ^{ in %q", raw)
			}
			peel, ok := peelType(suffix[1:end])
			if !ok {
				return nil, status.ErrUnsupportedReference.WrapMessage("^{%s} in %q", suffix[1:end], raw)
			}
			steps = append(steps, step{kind: stepPeel, peel: peel})
			suffix = suffix[end+1:]
			continue
		}

		digits := len(suffix) - len(strings.TrimLeft(suffix, "0123456789"))
		n := 1
		if digits > 0 {
			var err error
			n, err = strconv.Atoi(suffix[:digits])
			if err != nil {
				return nil, status.ErrUnsupportedReference.WrapMessage("in %q", raw).Wrap(err)
			}
			suffix = suffix[digits:]
		}

		switch op {
		case '^':
			steps = append(steps, step{kind: stepParent, n: n})
		case '~':
			steps = append(steps, step{kind: stepAncestor, n: n})
		default:
			return nil, status.ErrUnsupportedReference.WrapMessage("unexpected %q in %q", string(op), raw)
		}
	}
	return steps, nil
}

func peelType(name string) (plumbing.ObjectType, bool) {
	switch name {
	case "commit":
		return plumbing.CommitObject, true
	case "tree":
		return plumbing.TreeObject, true
	case "tag":
		return plumbing.TagObject, true
	case "blob":
		return plumbing.BlobObject, true
	case "":
		return peelAny, true
	default:
		return plumbing.InvalidObject, false
	}
}
