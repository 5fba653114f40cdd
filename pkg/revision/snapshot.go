package revision

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Snapshot is the tree selected by a revision expression.
//
// Commit is nil when the expression names a tree directly.
type Snapshot struct {
	Expression string
	Commit     *object.Commit
	Tree       *object.Tree
}

// Hash of the commit, or of the tree when no commit is known
func (s *Snapshot) Hash() plumbing.Hash {
	if s.Commit != nil {
		return s.Commit.Hash
	}
	return s.Tree.Hash
}

// Time of the snapshot, as recorded by the committer. Trees have no time.
func (s *Snapshot) Time() time.Time {
	if s.Commit == nil {
		return time.Time{}
	}
	return s.Commit.Committer.When
}

func (s *Snapshot) String() string {
	if s.Expression == "" {
		return s.Hash().String()
	}
	return s.Expression + "@" + s.Hash().String()
}
