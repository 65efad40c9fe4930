package workspace

import (
	"os"
	"path/filepath"
)

// Kind classifies a workspace resource.
type Kind int

const (
	KindFile Kind = iota + 1
	KindFolder
	KindProject
	KindRoot
)

var kindNames = [...]string{
	KindFile:    "file",
	KindFolder:  "folder",
	KindProject: "project",
	KindRoot:    "root",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsContainer reports whether the kind can hold children.
func (k Kind) IsContainer() bool {
	return k == KindFolder || k == KindProject || k == KindRoot
}

// Resource is a handle on a workspace resource. It is a plain value: the
// resource need not exist on disk.
type Resource struct {
	ws   *Workspace
	path Path
	kind Kind
}

// Path returns the logical path of the resource.
func (r Resource) Path() Path { return r.path }

// Kind returns the resource kind.
func (r Resource) Kind() Kind { return r.kind }

// Name returns the leaf name of the resource.
func (r Resource) Name() string { return r.path.Name() }

// IsRoot reports whether the resource is the workspace root.
func (r Resource) IsRoot() bool { return r.kind == KindRoot }

// Workspace returns the owning workspace.
func (r Resource) Workspace() *Workspace { return r.ws }

// Location returns the on-disk path of the resource.
func (r Resource) Location() string {
	return filepath.Join(r.ws.root, filepath.FromSlash(string(r.path)))
}

// Parent returns the containing resource. The root's parent is the root.
func (r Resource) Parent() Resource {
	parent := r.path.Parent()
	return r.ws.container(parent)
}

// Project returns the project the resource belongs to. For the root it
// returns the root itself.
func (r Resource) Project() Resource {
	if r.kind == KindRoot {
		return r
	}
	return r.ws.Project(r.path.ProjectName())
}

// Exists reports whether the resource is present on disk and its dir-ness
// matches the kind.
func (r Resource) Exists() bool {
	info, err := os.Stat(r.Location())
	if err != nil {
		return false
	}
	if r.kind == KindFile {
		return !info.IsDir()
	}
	return info.IsDir()
}
