package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/cvsync/internal/cache"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

func TestSession_SyncBytes(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	p := workspace.NewPath("proj", "a.c")

	assert.Nil(t, s.SyncBytes(p))
	s.SetSyncBytes(p, []byte("/a.c/1.1///"), true)
	assert.Equal(t, "/a.c/1.1///", string(s.SyncBytes(p)))

	s.SetSyncBytes(p, nil, true)
	assert.Nil(t, s.SyncBytes(p))
}

func TestSession_FolderSyncDistinguishesNilFromUnloaded(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	p := workspace.NewPath("proj")

	_, cached := s.FolderSync(p)
	assert.False(t, cached)

	s.SetFolderSync(p, nil, false)
	fs, cached := s.FolderSync(p)
	assert.True(t, cached)
	assert.Nil(t, fs)

	s.SetFolderSync(p, &syncinfo.FolderSync{Root: "r", Repository: "m"}, true)
	fs, cached = s.FolderSync(p)
	assert.True(t, cached)
	assert.Equal(t, "r", fs.Root)
}

func TestSession_LoadedFlag(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	p := workspace.NewPath("proj")

	assert.False(t, s.IsSyncLoaded(p))
	s.MarkSyncLoaded(p)
	assert.True(t, s.IsSyncLoaded(p))
}

func TestSession_DirtyIndicator(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	p := workspace.NewPath("proj", "a.c")

	assert.Equal(t, cache.IndicatorUnknown, s.DirtyIndicator(p))
	s.SetDirtyIndicator(p, cache.IsDirty)
	assert.Equal(t, cache.IsDirty, s.DirtyIndicator(p))
	s.FlushDirty(p)
	assert.Equal(t, cache.IndicatorUnknown, s.DirtyIndicator(p))
}

func TestSession_PurgeShallow(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	folder := workspace.NewPath("proj", "src")
	child := folder.Append("a.c")
	grandchild := folder.Append("deep").Append("b.c")

	s.MarkSyncLoaded(folder)
	s.SetSyncBytes(child, []byte("x"), true)
	s.SetSyncBytes(grandchild, []byte("y"), true)

	s.Purge(folder, false)

	assert.False(t, s.IsSyncLoaded(folder))
	assert.Nil(t, s.SyncBytes(child))
	// Shallow purge leaves deeper entries alone.
	assert.NotNil(t, s.SyncBytes(grandchild))
}

func TestSession_PurgeDeep(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	folder := workspace.NewPath("proj")
	grandchild := workspace.NewPath("proj", "src", "a.c")
	sibling := workspace.NewPath("other", "b.c")

	s.SetSyncBytes(grandchild, []byte("x"), true)
	s.SetSyncBytes(sibling, []byte("y"), true)

	s.Purge(folder, true)

	assert.Nil(t, s.SyncBytes(grandchild))
	assert.NotNil(t, s.SyncBytes(sibling))
}

func TestSession_PurgeIgnores(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	p := workspace.NewPath("proj")

	s.SetIgnores(p, syncinfo.CompileIgnores([]string{"*.log"}))
	_, cached := s.Ignores(p)
	assert.True(t, cached)

	s.PurgeIgnores(p)
	_, cached = s.Ignores(p)
	assert.False(t, cached)
}

func TestSession_PurgeResourceSync(t *testing.T) {
	t.Parallel()

	s := cache.NewSession()
	p := workspace.NewPath("proj", "a.c")

	s.SetSyncBytes(p, []byte("x"), true)
	s.SetDirtyIndicator(p, cache.NotDirty)
	s.PurgeResourceSync(p)

	assert.Nil(t, s.SyncBytes(p))
	// Only the sync bytes go; dirty state survives.
	assert.Equal(t, cache.NotDirty, s.DirtyIndicator(p))
}
