package gitfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

func TestToRelative(t *testing.T) {
	for _, toPin := range []struct {
		root     string
		path     string
		expected string
		isRoot   bool
		err      error
	}{
		{root: "/", path: "/", isRoot: true},
		{root: "/", path: "", isRoot: true},
		{root: "/", path: "/a/b", expected: "a/b"},
		{root: "/", path: "a/b/", expected: "a/b"},
		{root: "/", path: "/a/../..", isRoot: true},
		{root: "/mnt/repo", path: "/mnt/repo", isRoot: true},
		{root: "/mnt/repo/", path: "/mnt/repo/", isRoot: true},
		{root: "/mnt/repo", path: "/mnt/repo/x/", expected: "x"},
		{root: "/mnt/repo", path: "/mnt/repo/a/../b", expected: "b"},
		{root: "mnt/repo", path: "/mnt/repo/c", expected: "c"},
		{root: "/mnt/repo", path: "/mnt/repository", err: status.ErrOutsideRoot},
		{root: "/mnt/repo", path: "/mnt", err: status.ErrOutsideRoot},
		{root: "/mnt/repo", path: "/mnt/repo/..", err: status.ErrOutsideRoot},
	} {
		tc := toPin
		t.Run(tc.root+":"+tc.path, func(t *testing.T) {
			rel, isRoot, err := ToRelative(tc.root, tc.path)
			if tc.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, rel)
			assert.Equal(t, tc.isRoot, isRoot)
		})
	}
}

func TestRelativeToNamespaceRoot(t *testing.T) {
	ns := New(RootName("/mnt/repo/"))
	assert.Equal(t, "/mnt/repo", ns.Root())

	rel, isRoot, err := ns.relative("x/y")
	require.NoError(t, err)
	assert.False(t, isRoot)
	assert.Equal(t, "x/y", rel)

	rel, _, err = ns.relative("/mnt/repo/x")
	require.NoError(t, err)
	assert.Equal(t, "x", rel)
	assert.Equal(t, "/mnt/repo/x", ns.absolute(rel))

	_, _, err = ns.relative("/elsewhere")
	assert.True(t, errors.Is(err, status.ErrOutsideRoot))
}
