package syncfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	return ws
}

// newFolder creates a folder on disk and returns its resource.
func newFolder(t *testing.T, ws *workspace.Workspace, segments ...string) workspace.Resource {
	t.Helper()
	folder := ws.Folder(workspace.NewPath(segments...))
	require.NoError(t, os.MkdirAll(folder.Location(), 0755))
	return folder
}

func readMeta(t *testing.T, folder workspace.Resource, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(folder.Location(), "CVS", name))
	require.NoError(t, err)
	return string(data)
}

func TestWriteReadAllResourceSync(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")

	infos := [][]byte{
		[]byte("/a.c/1.1/ts//"),
		[]byte("/b.c/1.2/ts/-kb/"),
		[]byte("D/deep////"),
	}
	require.NoError(t, syncfile.WriteAllResourceSync(folder, infos, false))

	got, err := syncfile.ReadAllResourceSync(folder)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range infos {
		assert.Equal(t, string(infos[i]), string(got[i]))
	}

	assert.Equal(t, "/a.c/1.1/ts//\n/b.c/1.2/ts/-kb/\nD/deep////\n",
		readMeta(t, folder, "Entries"))
}

func TestReadAllResourceSync_NoControlDir(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")

	got, err := syncfile.ReadAllResourceSync(folder)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFolderSync_RoundTrip(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")

	fs := &syncinfo.FolderSync{
		Root:       ":pserver:anon@cvs.example.org:/repo",
		Repository: "module/src",
		Tag:        &syncinfo.Tag{Type: syncinfo.TagBranch, Name: "b1"},
		Static:     false,
	}
	require.NoError(t, syncfile.WriteFolderSync(folder, fs))

	assert.Equal(t, ":pserver:anon@cvs.example.org:/repo\n", readMeta(t, folder, "Root"))
	assert.Equal(t, "module/src\n", readMeta(t, folder, "Repository"))
	assert.Equal(t, "Tb1\n", readMeta(t, folder, "Tag"))

	got, err := syncfile.ReadFolderSync(folder)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, fs.Equal(got))
}

func TestFolderSync_StaticMarker(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")

	require.NoError(t, syncfile.WriteAllResourceSync(folder, [][]byte{[]byte("/a.c/1.1///")}, false))
	fs := &syncinfo.FolderSync{Root: ":local:/repo", Repository: "m", Static: true}
	require.NoError(t, syncfile.WriteFolderSync(folder, fs))

	// The static flag lands as the bare D line, preserving the entries.
	assert.Equal(t, "/a.c/1.1///\nD\n", readMeta(t, folder, "Entries"))

	got, err := syncfile.ReadFolderSync(folder)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Static)

	// Entries reads still exclude the marker line.
	infos, err := syncfile.ReadAllResourceSync(folder)
	require.NoError(t, err)
	require.Len(t, infos, 1)
}

func TestFolderSync_NoTagFile(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")

	fs := &syncinfo.FolderSync{Root: ":local:/repo", Repository: "m"}
	require.NoError(t, syncfile.WriteFolderSync(folder, fs))

	_, err := os.Stat(filepath.Join(folder.Location(), "CVS", "Tag"))
	assert.True(t, os.IsNotExist(err))

	got, err := syncfile.ReadFolderSync(folder)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Tag)
}

func TestDeleteFolderSync_RemovesControlDir(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")

	fs := &syncinfo.FolderSync{Root: ":local:/repo", Repository: "m"}
	require.NoError(t, syncfile.WriteFolderSync(folder, fs))
	require.NoError(t, syncfile.DeleteFolderSync(folder))

	_, err := os.Stat(filepath.Join(folder.Location(), "CVS"))
	assert.True(t, os.IsNotExist(err))

	got, err := syncfile.ReadFolderSync(folder)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCVSIgnore_RoundTrip(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p")

	got, err := syncfile.ReadCVSIgnore(folder)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, syncfile.WriteCVSIgnore(folder, []string{"*.log", "build"}))
	got, err = syncfile.ReadCVSIgnore(folder)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.log", "build"}, got)

	data, err := os.ReadFile(filepath.Join(folder.Location(), syncfile.IgnoreFile))
	require.NoError(t, err)
	assert.Equal(t, "*.log\nbuild\n", string(data))
}

func TestNotify_RoundTripAndRemoval(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p")

	infos := []*syncinfo.NotifyInfo{
		{Name: "a.c", Type: syncinfo.NotifyEdit, Timestamp: "ts", Watches: "EUC"},
		{Name: "b.c", Type: syncinfo.NotifyUnedit, Timestamp: "ts2", Watches: ""},
	}
	require.NoError(t, syncfile.WriteAllNotify(folder, infos))

	got, err := syncfile.ReadAllNotify(folder)
	require.NoError(t, err)
	assert.Equal(t, infos, got)

	// An empty list removes the file.
	require.NoError(t, syncfile.WriteAllNotify(folder, nil))
	got, err = syncfile.ReadAllNotify(folder)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBaserev_RoundTrip(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p")

	infos := []*syncinfo.BaserevInfo{{Name: "a.c", Revision: "1.4"}}
	require.NoError(t, syncfile.WriteAllBaserev(folder, infos))

	got, err := syncfile.ReadAllBaserev(folder)
	require.NoError(t, err)
	assert.Equal(t, infos, got)
}

func TestWriteFailure_ReportsIoError(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")
	cvsDir := filepath.Join(folder.Location(), "CVS")
	require.NoError(t, os.MkdirAll(cvsDir, 0755))
	require.NoError(t, os.Chmod(cvsDir, 0555))
	t.Cleanup(func() { _ = os.Chmod(cvsDir, 0755) })

	err := syncfile.WriteAllResourceSync(folder, [][]byte{[]byte("/a.c/1.1///")}, false)
	require.Error(t, err)

	var ioErr *syncfile.IoError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, folder.Path(), ioErr.Path)
}

func TestLinkedFolder_NeverTouched(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	newFolder(t, ws, "p")

	// A folder whose storage lives outside the project root.
	external := t.TempDir()
	linked := ws.Folder(workspace.NewPath("p", "linked"))
	require.NoError(t, os.Symlink(external, linked.Location()))

	require.True(t, syncfile.IsLinked(linked))

	fs := &syncinfo.FolderSync{Root: ":local:/repo", Repository: "m"}
	assert.ErrorIs(t, syncfile.WriteFolderSync(linked, fs), syncfile.ErrLinkedFolder)
	assert.ErrorIs(t, syncfile.WriteAllResourceSync(linked, nil, false), syncfile.ErrLinkedFolder)

	got, err := syncfile.ReadFolderSync(linked)
	require.NoError(t, err)
	assert.Nil(t, got)

	// No control directory was created inside the link target.
	entries, err := os.ReadDir(external)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIsLinked_OrdinaryFolder(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	folder := newFolder(t, ws, "p", "src")
	assert.False(t, syncfile.IsLinked(folder))

	// Projects themselves are never linked.
	assert.False(t, syncfile.IsLinked(ws.Project("p")))
}
