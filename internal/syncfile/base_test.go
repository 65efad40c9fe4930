package syncfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/workspace"
)

func newFile(t *testing.T, ws *workspace.Workspace, content string, segments ...string) workspace.Resource {
	t.Helper()
	file := ws.File(workspace.NewPath(segments...))
	require.NoError(t, os.MkdirAll(filepath.Dir(file.Location()), 0755))
	require.NoError(t, os.WriteFile(file.Location(), []byte(content), 0644))
	return file
}

func TestCopyToBase_And_IsEdited(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	file := newFile(t, ws, "original\n", "p", "a.c")

	assert.False(t, syncfile.IsEdited(file))
	require.NoError(t, syncfile.CopyToBase(context.Background(), file, nil))
	assert.True(t, syncfile.IsEdited(file))

	data, err := os.ReadFile(filepath.Join(file.Parent().Location(), "CVS", "Base", "a.c"))
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))
}

func TestRestoreFromBase(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	file := newFile(t, ws, "original\n", "p", "a.c")
	require.NoError(t, syncfile.CopyToBase(context.Background(), file, nil))

	require.NoError(t, os.WriteFile(file.Location(), []byte("edited\n"), 0644))
	require.NoError(t, syncfile.RestoreFromBase(context.Background(), file, nil))

	data, err := os.ReadFile(file.Location())
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))
}

func TestDeleteBase(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	file := newFile(t, ws, "original\n", "p", "a.c")
	require.NoError(t, syncfile.CopyToBase(context.Background(), file, nil))
	require.NoError(t, syncfile.DeleteBase(file))
	assert.False(t, syncfile.IsEdited(file))

	// Deleting again is fine.
	require.NoError(t, syncfile.DeleteBase(file))
}

func TestIsModifiedSinceBase(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	file := newFile(t, ws, "original\n", "p", "a.c")

	// No base copy yet: modified.
	modified, err := syncfile.IsModifiedSinceBase(file)
	require.NoError(t, err)
	assert.True(t, modified)

	require.NoError(t, syncfile.CopyToBase(context.Background(), file, nil))
	modified, err = syncfile.IsModifiedSinceBase(file)
	require.NoError(t, err)
	assert.False(t, modified)

	require.NoError(t, os.WriteFile(file.Location(), []byte("edited\n"), 0644))
	modified, err = syncfile.IsModifiedSinceBase(file)
	require.NoError(t, err)
	assert.True(t, modified)
}

func TestCopyToBase_RateLimited(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	file := newFile(t, ws, "small content", "p", "a.c")

	// A generous limit must not get in the way of a small copy.
	limiter := syncfile.NewBWLimiter(10 << 20)
	require.NoError(t, syncfile.CopyToBase(context.Background(), file, limiter))
	assert.True(t, syncfile.IsEdited(file))
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	a := newFile(t, ws, "same", "p", "a.c")
	b := newFile(t, ws, "same", "p", "b.c")
	c := newFile(t, ws, "different", "p", "c.c")

	ha, err := syncfile.HashFile(a.Location())
	require.NoError(t, err)
	hb, err := syncfile.HashFile(b.Location())
	require.NoError(t, err)
	hc, err := syncfile.HashFile(c.Location())
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
	assert.Len(t, ha, 64)
}
