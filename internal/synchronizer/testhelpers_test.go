package synchronizer_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cvsync/internal/broadcast"
	"github.com/bamsammich/cvsync/internal/synchronizer"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// newSync builds a workspace in a temp dir with a "p" project and returns a
// synchronizer over it.
func newSync(t *testing.T) (*workspace.Workspace, *synchronizer.Synchronizer) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(ws.RootDir(), "p"), 0755))
	return ws, synchronizer.New(ws, synchronizer.Options{})
}

func mkFolder(t *testing.T, ws *workspace.Workspace, segments ...string) workspace.Resource {
	t.Helper()
	folder := ws.Folder(workspace.NewPath(segments...))
	require.NoError(t, os.MkdirAll(folder.Location(), 0755))
	return folder
}

func mkFile(t *testing.T, ws *workspace.Workspace, content string, segments ...string) workspace.Resource {
	t.Helper()
	file := ws.File(workspace.NewPath(segments...))
	require.NoError(t, os.MkdirAll(filepath.Dir(file.Location()), 0755))
	require.NoError(t, os.WriteFile(file.Location(), []byte(content), 0644))
	return file
}

func readMeta(t *testing.T, folder workspace.Resource, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(folder.Location(), "CVS", name))
	require.NoError(t, err)
	return string(data)
}

func metaExists(folder workspace.Resource, name string) bool {
	_, err := os.Stat(filepath.Join(folder.Location(), "CVS", name))
	return err == nil
}

// recorder collects broadcast change sets.
type recorder struct {
	mu   sync.Mutex
	sets [][]workspace.Path
}

func (r *recorder) listen() broadcast.Listener {
	return func(resources []workspace.Resource) {
		paths := make([]workspace.Path, len(resources))
		for i, res := range resources {
			paths[i] = res.Path()
		}
		r.mu.Lock()
		r.sets = append(r.sets, paths)
		r.mu.Unlock()
	}
}

func (r *recorder) all() [][]workspace.Path {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]workspace.Path(nil), r.sets...)
}

func (r *recorder) union() map[workspace.Path]bool {
	out := make(map[workspace.Path]bool)
	for _, set := range r.all() {
		for _, p := range set {
			out[p] = true
		}
	}
	return out
}

func ctxb() context.Context { return context.Background() }
