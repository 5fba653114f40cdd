package gitfs

import (
	"io"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/gitfs/pkg/errors"
	"github.com/oneconcern/gitfs/pkg/gitfs/status"
)

func TestReadBack(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	for p, content := range committed {
		e, err := ns.Stat(p)
		require.NoError(t, err)

		size, err := ns.Size(e)
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), size, p)

		rdr, err := ns.OpenStream(e)
		require.NoError(t, err)
		actual, err := io.ReadAll(rdr)
		require.NoError(t, err)
		require.NoError(t, rdr.Close())
		assert.Equal(t, content, actual, p)
	}
}

func TestIndependentStreams(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)
	e, err := ns.Stat("folder1/nested.txt")
	require.NoError(t, err)

	first, err := ns.OpenStream(e)
	require.NoError(t, err)
	defer func() { _ = first.Close() }()
	second, err := ns.OpenStream(e)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	buf := make([]byte, 3)
	_, err = io.ReadFull(first, buf)
	require.NoError(t, err)
	assert.Equal(t, "nes", string(buf))

	all, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, "nested", string(all))

	rest, err := io.ReadAll(first)
	require.NoError(t, err)
	assert.Equal(t, "ted", string(rest))
}

func TestContentRequiresFile(t *testing.T) {
	f := newFixture(t)
	ns := openNamespace(t, f.Repo)

	for _, p := range []string{"/", "folder1", "nope", "link"} {
		e, err := ns.Stat(p)
		require.NoError(t, err)

		_, err = ns.Size(e)
		assert.True(t, errors.Is(err, status.ErrInvalidEntryKind), p)
		_, err = ns.OpenStream(e)
		assert.True(t, errors.Is(err, status.ErrInvalidEntryKind), p)
	}

	_, err := ns.Open("nope")
	assert.True(t, errors.Is(err, status.ErrNotExist))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = ns.Open("folder1")
	assert.True(t, errors.Is(err, status.ErrInvalidEntryKind))
}

func TestOpenRandomAccess(t *testing.T) {
	f := newFixture(t)
	tmp := afero.NewMemMapFs()
	ns := openNamespace(t, f.Repo, TempFs(tmp))

	file, err := ns.OpenRandomAccess("folder1/nested.txt")
	require.NoError(t, err)
	assert.Equal(t, "/folder1/nested.txt", file.Name())

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size())
	assert.Equal(t, "nested.txt", info.Name())
	assert.False(t, info.IsDir())

	buf := make([]byte, 3)
	_, err = file.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "ted", string(buf))

	_, err = file.Seek(1, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "ested", string(rest))

	copied := file.(*randomAccessFile).tmpName
	exists, err := afero.Exists(tmp, copied)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, file.Close())
	exists, err = afero.Exists(tmp, copied)
	require.NoError(t, err)
	assert.False(t, exists, "the copy is removed on close")

	_, err = ns.OpenRandomAccess("nope")
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = ns.OpenRandomAccess("folder1")
	assert.True(t, errors.Is(err, status.ErrInvalidEntryKind))
}
