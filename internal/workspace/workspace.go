// Package workspace models the tree of resources a synchronizer manages.
//
// Resources are lightweight value handles keyed by logical Path; the tree is
// never materialised as linked nodes. Ancestor walks iterate paths, existence
// is answered by the filesystem.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
)

// MetaDir is the name of the per-folder control directory. It is never
// reported as a member.
const MetaDir = "CVS"

// SidecarDir holds workspace-private state (the phantom sidecar database).
const SidecarDir = ".cvsync"

// Workspace is a tree of projects rooted at a directory on disk.
type Workspace struct {
	root  string
	delta atomic.Int32
}

// New opens the workspace rooted at dir. The directory must exist.
func New(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs}, nil
}

// RootDir returns the on-disk root directory.
func (ws *Workspace) RootDir() string { return ws.root }

// Root returns the workspace root resource.
func (ws *Workspace) Root() Resource {
	return Resource{ws: ws, path: Root, kind: KindRoot}
}

// Project returns the project resource with the given name.
func (ws *Workspace) Project(name string) Resource {
	return Resource{ws: ws, path: NewPath(name), kind: KindProject}
}

// File returns a file resource for the given path.
func (ws *Workspace) File(p Path) Resource {
	return Resource{ws: ws, path: p, kind: KindFile}
}

// Folder returns a container resource for the given path, choosing the
// root/project/folder kind from the path depth.
func (ws *Workspace) Folder(p Path) Resource {
	return ws.container(p)
}

func (ws *Workspace) container(p Path) Resource {
	switch p.Depth() {
	case 0:
		return ws.Root()
	case 1:
		return Resource{ws: ws, path: p, kind: KindProject}
	default:
		return Resource{ws: ws, path: p, kind: KindFolder}
	}
}

// SidecarPath returns the location of the workspace-private sidecar file
// with the given name.
func (ws *Workspace) SidecarPath(name string) string {
	return filepath.Join(ws.root, SidecarDir, name)
}

// Members lists the extant children of a container, sorted by name. The
// control directory and the sidecar directory are excluded. Phantom children
// are not the workspace's business; callers that need them merge in cached
// phantom state.
func (ws *Workspace) Members(folder Resource) ([]Resource, error) {
	if !folder.Kind().IsContainer() {
		return nil, fmt.Errorf("%s is not a container", folder.Path())
	}
	entries, err := os.ReadDir(folder.Location())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder.Path(), err)
	}
	members := make([]Resource, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == MetaDir || (folder.IsRoot() && name == SidecarDir) {
			continue
		}
		child := folder.Path().Append(name)
		if entry.IsDir() {
			members = append(members, ws.container(child))
		} else {
			members = append(members, ws.File(child))
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Name() < members[j].Name()
	})
	return members, nil
}
