package broadcast_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/cvsync/internal/broadcast"
	"github.com/bamsammich/cvsync/internal/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestBroadcast_DeliversToAllListeners(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	b := broadcast.New(slog.Default())

	var got1, got2 [][]workspace.Resource
	b.Subscribe(func(rs []workspace.Resource) { got1 = append(got1, rs) })
	b.Subscribe(func(rs []workspace.Resource) { got2 = append(got2, rs) })
	assert.Equal(t, 2, b.Count())

	changes := []workspace.Resource{ws.Project("p"), ws.File(workspace.NewPath("p", "a.c"))}
	b.Broadcast(changes)

	require.Len(t, got1, 1)
	require.Len(t, got2, 1)
	assert.Equal(t, changes, got1[0])
}

func TestBroadcast_EmptySetSkipsListeners(t *testing.T) {
	t.Parallel()

	b := broadcast.New(nil)
	called := false
	b.Subscribe(func([]workspace.Resource) { called = true })

	b.Broadcast(nil)
	assert.False(t, called)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	b := broadcast.New(nil)

	calls := 0
	reg := b.Subscribe(func([]workspace.Resource) { calls++ })
	b.Broadcast([]workspace.Resource{ws.Project("p")})
	b.Unsubscribe(reg)
	b.Broadcast([]workspace.Resource{ws.Project("p")})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Count())
}

func TestBroadcast_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	t.Parallel()

	ws := newWorkspace(t)
	b := broadcast.New(slog.Default())

	delivered := false
	b.Subscribe(func([]workspace.Resource) { panic("listener bug") })
	b.Subscribe(func([]workspace.Resource) { delivered = true })

	assert.NotPanics(t, func() {
		b.Broadcast([]workspace.Resource{ws.Project("p")})
	})
	assert.True(t, delivered)
}
