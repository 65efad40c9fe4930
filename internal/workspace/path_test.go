package workspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/cvsync/internal/workspace"
)

func TestPath_Basics(t *testing.T) {
	t.Parallel()

	p := workspace.NewPath("proj", "src", "main.c")
	assert.Equal(t, workspace.Path("/proj/src/main.c"), p)
	assert.Equal(t, "main.c", p.Name())
	assert.Equal(t, workspace.Path("/proj/src"), p.Parent())
	assert.Equal(t, "proj", p.ProjectName())
	assert.Equal(t, 3, p.Depth())
	assert.False(t, p.IsRoot())
}

func TestPath_Root(t *testing.T) {
	t.Parallel()

	assert.True(t, workspace.Root.IsRoot())
	assert.Equal(t, workspace.Root, workspace.NewPath())
	assert.Equal(t, workspace.Root, workspace.Root.Parent())
	assert.Equal(t, "", workspace.Root.Name())
	assert.Nil(t, workspace.Root.Segments())
	assert.Equal(t, workspace.Path("/a"), workspace.Root.Append("a"))
}

func TestPath_ParentOfProject(t *testing.T) {
	t.Parallel()

	assert.Equal(t, workspace.Root, workspace.NewPath("proj").Parent())
}

func TestPath_Contains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p, q     workspace.Path
		contains bool
	}{
		{"/a", "/a", true},
		{"/a", "/a/b", true},
		{"/a", "/a/b/c", true},
		{"/a", "/ab", false},
		{"/a/b", "/a", false},
		{"/", "/a", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.contains, tt.p.Contains(tt.q), "%s contains %s", tt.p, tt.q)
	}
}

func TestPath_Overlaps(t *testing.T) {
	t.Parallel()

	assert.True(t, workspace.Path("/a").Overlaps("/a/b"))
	assert.True(t, workspace.Path("/a/b").Overlaps("/a"))
	assert.False(t, workspace.Path("/a").Overlaps("/b"))
	assert.True(t, workspace.Root.Overlaps("/b"))
}
