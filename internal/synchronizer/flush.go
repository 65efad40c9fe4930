package synchronizer

import (
	"context"
	"errors"
	"sort"

	"github.com/bamsammich/cvsync/internal/batch"
	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// commit writes a batch scope's accumulated changes to disk and broadcasts
// the affected resources. It is the flush callback handed to the batch lock
// and runs on the scope's own goroutine at the outermost release.
//
// Failures are recovered per folder: the folder's cache region is purged so
// the next access re-reads disk, the error is recorded, and the commit
// continues. Cancellation is deliberately not consulted here; cache-to-disk
// coherence outranks the caller's cancel.
func (s *Synchronizer) commit(ctx context.Context, info *batch.ThreadInfo) error {
	changedResources := info.ChangedResources()
	changedFolders := info.ChangedFolders()

	// Parents of changed resources get their Entries rewritten in one pass.
	dirtyParents := make(map[workspace.Path]struct{})
	for _, p := range changedResources {
		dirtyParents[p.Parent()] = struct{}{}
	}

	var errFolders []workspace.Path
	var errs []error
	fail := func(p workspace.Path, err error) {
		errFolders = append(errFolders, p)
		errs = append(errs, err)
		s.stats.AddFlushErrors(1)
	}

	// Folder sync changes.
	for _, fp := range changedFolders {
		folder := s.ws.Folder(fp)
		if !folder.Exists() || folder.Kind() == workspace.KindRoot {
			continue
		}
		var fs *syncinfo.FolderSync
		_ = s.withOp(func() error {
			fs, _ = s.session.FolderSync(fp)
			return nil
		})
		if fs == nil {
			// Deleted since it was loaded. Linked folders keep whatever
			// is on disk.
			if !syncfile.IsLinked(folder) {
				if err := syncfile.DeleteFolderSync(folder); err != nil {
					s.purgeAfterFailure(fp, true)
					fail(fp, err)
					continue
				}
			}
			delete(dirtyParents, fp)
			continue
		}
		if err := syncfile.WriteFolderSync(folder, fs); err != nil {
			// The disk layer refuses linked folders; in-memory state is
			// still valid for callers, so this is not a failure.
			if errors.Is(err, syncfile.ErrLinkedFolder) {
				continue
			}
			s.purgeAfterFailure(fp, true)
			fail(fp, err)
			continue
		}
		s.stats.AddFoldersFlushed(1)
	}

	// Resource sync changes, one Entries write per parent.
	for _, fp := range sortedPaths(dirtyParents) {
		folder := s.ws.Folder(fp)
		if !folder.Exists() || folder.Kind() == workspace.KindRoot {
			continue
		}
		var infos [][]byte
		var static bool
		err := s.withOp(func() error {
			for _, child := range s.membersLocked(folder) {
				if syncBytes := s.cacheFor(child).SyncBytes(child.Path()); syncBytes != nil {
					infos = append(infos, syncBytes)
				}
			}
			fs, err := s.folderSyncLocked(folder)
			if err != nil {
				return err
			}
			static = fs != nil && fs.Static
			return nil
		})
		if err != nil {
			s.purgeAfterFailure(fp, false)
			fail(fp, err)
			continue
		}
		// Never clobber a linked folder's control files with an empty list.
		if len(infos) == 0 && syncfile.IsLinked(folder) {
			continue
		}
		if err := syncfile.WriteAllResourceSync(folder, infos, static); err != nil {
			if errors.Is(err, syncfile.ErrLinkedFolder) {
				continue
			}
			s.purgeAfterFailure(fp, false)
			fail(fp, err)
			continue
		}
		s.stats.AddFoldersFlushed(1)
	}

	// Broadcast the union of everything affected.
	all := make(map[workspace.Path]struct{})
	for _, p := range changedResources {
		all[p] = struct{}{}
	}
	for _, p := range changedFolders {
		all[p] = struct{}{}
	}
	for p := range dirtyParents {
		all[p] = struct{}{}
	}
	for _, p := range s.ignorePeers(info.ChangedIgnoreFiles()) {
		all[p] = struct{}{}
	}
	resources := make([]workspace.Resource, 0, len(all))
	for _, p := range sortedPaths(all) {
		resources = append(resources, s.resourceFor(p))
	}
	s.broadcast(resources)

	if len(errs) > 0 {
		return &CommitError{Folders: errFolders, Errs: errs}
	}
	return nil
}

// purgeAfterFailure drops the cache region of a folder whose write failed,
// deep for folder-sync failures, shallow for resource-sync failures, so
// subsequent reads re-consult disk.
func (s *Synchronizer) purgeAfterFailure(fp workspace.Path, deep bool) {
	_ = s.withOp(func() error {
		s.session.Purge(fp, deep)
		return nil
	})
}

// ignorePeers returns the parent and siblings of each changed ignore file;
// their ignored status may all have changed.
func (s *Synchronizer) ignorePeers(ignoreFiles []workspace.Path) []workspace.Path {
	seen := make(map[workspace.Path]struct{})
	for _, f := range ignoreFiles {
		parent := s.ws.Folder(f.Parent())
		if !parent.Exists() {
			continue
		}
		seen[parent.Path()] = struct{}{}
		members, err := s.ws.Members(parent)
		if err != nil {
			continue
		}
		for _, m := range members {
			seen[m.Path()] = struct{}{}
		}
	}
	return sortedPaths(seen)
}

// broadcast fans a change set out to the registered listeners.
func (s *Synchronizer) broadcast(resources []workspace.Resource) {
	if len(resources) == 0 {
		return
	}
	s.bcast.Broadcast(resources)
	s.stats.AddBroadcasts(1)
	s.stats.AddResourcesNotified(int64(len(resources)))
}

func sortedPaths(m map[workspace.Path]struct{}) []workspace.Path {
	out := make([]workspace.Path, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
