package synchronizer

import (
	"context"
	"sort"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// Members returns the children of the folder, including deleted resources
// that still carry sync info. Loading the folder's sync first guarantees any
// required phantoms have been materialised.
func (s *Synchronizer) Members(ctx context.Context, folder workspace.Resource) ([]workspace.Resource, error) {
	if !s.isValid(folder) {
		return nil, nil
	}
	var out []workspace.Resource
	err := s.withOp(func() error {
		if folder.Kind() != workspace.KindRoot {
			if err := s.loadChildSyncLocked(folder); err != nil {
				return err
			}
		}
		out = s.membersLocked(folder)
		return nil
	})
	return out, err
}

// membersLocked merges the folder's extant children with its phantom
// children. Requires the op lock.
func (s *Synchronizer) membersLocked(folder workspace.Resource) []workspace.Resource {
	var members []workspace.Resource
	seen := make(map[workspace.Path]struct{})
	if folder.Exists() {
		disk, err := s.ws.Members(folder)
		if err == nil {
			for _, m := range disk {
				seen[m.Path()] = struct{}{}
			}
			members = disk
		}
	}
	for _, p := range s.phantom.Children(folder.Path()) {
		if _, ok := seen[p]; ok {
			continue
		}
		members = append(members, s.resourceFor(p))
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Name() < members[j].Name()
	})
	return members
}
