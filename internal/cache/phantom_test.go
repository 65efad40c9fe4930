package cache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cvsync/internal/cache"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

func TestPhantom_SyncBytes(t *testing.T) {
	t.Parallel()

	c := cache.NewPhantom(nil, nil)
	p := workspace.NewPath("proj", "gone.c")

	assert.False(t, c.Has(p))
	c.SetSyncBytes(p, []byte("/gone.c/-1.1///"), true)
	assert.True(t, c.Has(p))
	assert.Equal(t, "/gone.c/-1.1///", string(c.SyncBytes(p)))

	c.SetSyncBytes(p, nil, true)
	assert.False(t, c.Has(p))
}

func TestPhantom_FolderSyncAndKind(t *testing.T) {
	t.Parallel()

	c := cache.NewPhantom(nil, nil)
	p := workspace.NewPath("proj", "gone")

	c.SetKind(p, workspace.KindFolder)
	c.SetFolderSync(p, &syncinfo.FolderSync{Root: "r", Repository: "m"}, true)

	assert.True(t, c.Has(p))
	assert.Equal(t, workspace.KindFolder, c.Kind(p))
	fs, set := c.FolderSync(p)
	assert.True(t, set)
	assert.Equal(t, "m", fs.Repository)
}

func TestPhantom_Children(t *testing.T) {
	t.Parallel()

	c := cache.NewPhantom(nil, nil)
	parent := workspace.NewPath("proj", "src")
	c.SetSyncBytes(parent.Append("b.c"), []byte("/b.c/-1.1///"), true)
	c.SetSyncBytes(parent.Append("a.c"), []byte("/a.c/-1.2///"), true)
	c.SetSyncBytes(workspace.NewPath("proj", "other", "c.c"), []byte("/c.c/-1.3///"), true)

	children := c.Children(parent)
	require.Len(t, children, 2)
	assert.Equal(t, parent.Append("a.c"), children[0])
	assert.Equal(t, parent.Append("b.c"), children[1])
}

func TestPhantom_PurgeDeep(t *testing.T) {
	t.Parallel()

	c := cache.NewPhantom(nil, nil)
	project := workspace.NewPath("proj")
	c.SetSyncBytes(workspace.NewPath("proj", "src", "a.c"), []byte("x"), true)
	c.SetSyncBytes(workspace.NewPath("other", "b.c"), []byte("y"), true)

	c.Purge(project, true)

	assert.False(t, c.Has(workspace.NewPath("proj", "src", "a.c")))
	assert.True(t, c.Has(workspace.NewPath("other", "b.c")))
}

func TestPhantom_IsSyncLoadedAlwaysTrue(t *testing.T) {
	t.Parallel()

	c := cache.NewPhantom(nil, nil)
	assert.True(t, c.IsSyncLoaded(workspace.NewPath("anything")))
}

func TestSidecar_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), ".cvsync", "phantoms.db")

	sidecar, err := cache.OpenSidecar(dbPath)
	require.NoError(t, err)

	c := cache.NewPhantom(sidecar, nil)
	filePath := workspace.NewPath("proj", "gone.c")
	folderPath := workspace.NewPath("proj", "gonedir")
	c.SetSyncBytes(filePath, []byte("/gone.c/-1.4///"), true)
	c.SetKind(folderPath, workspace.KindFolder)
	c.SetFolderSync(folderPath, &syncinfo.FolderSync{
		Root:       ":local:/repo",
		Repository: "m/gonedir",
		Tag:        &syncinfo.Tag{Type: syncinfo.TagBranch, Name: "b1"},
	}, true)
	require.NoError(t, sidecar.Close())

	reopened, err := cache.OpenSidecar(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	restored := cache.NewPhantom(reopened, nil)
	assert.Equal(t, "/gone.c/-1.4///", string(restored.SyncBytes(filePath)))
	assert.Equal(t, workspace.KindFolder, restored.Kind(folderPath))
	fs, set := restored.FolderSync(folderPath)
	require.True(t, set)
	assert.Equal(t, "m/gonedir", fs.Repository)
	require.NotNil(t, fs.Tag)
	assert.Equal(t, "b1", fs.Tag.Name)
}

func TestSidecar_DeleteRemovesRow(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "phantoms.db")

	sidecar, err := cache.OpenSidecar(dbPath)
	require.NoError(t, err)

	c := cache.NewPhantom(sidecar, nil)
	p := workspace.NewPath("proj", "gone.c")
	c.SetSyncBytes(p, []byte("/gone.c/-1.4///"), true)
	c.SetSyncBytes(p, nil, true)
	require.NoError(t, sidecar.Close())

	reopened, err := cache.OpenSidecar(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	restored := cache.NewPhantom(reopened, nil)
	assert.False(t, restored.Has(p))
}
