package synchronizer

import (
	"context"
	"errors"

	"github.com/bamsammich/cvsync/internal/batch"
	"github.com/bamsammich/cvsync/internal/cache"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// PrepareForDeletion remembers the sync info of a resource that is about to
// be deleted (control directory included). For a managed, non-added file the
// sync bytes are converted to deletion form and moved into the phantom
// cache; for a folder the folder sync and the folder's own resource sync
// move into phantom space; for a project all phantom state is flushed.
func (s *Synchronizer) PrepareForDeletion(ctx context.Context, r workspace.Resource) error {
	if !r.Exists() {
		return nil
	}
	return s.withBatch(ctx, r, func(ctx context.Context) error {
		return s.withOp(func() error {
			// Flush the dirty info for the resource and its ancestors up
			// front: the deletion may still fail.
			s.adjustDirtyLocked(r, cache.Recompute)
			info := batch.FromContext(ctx)

			if r.Kind() == workspace.KindFile {
				syncBytes, err := s.syncBytesLocked(r)
				if err != nil {
					return err
				}
				if syncBytes == nil {
					return nil
				}
				if !syncinfo.IsAddition(syncBytes) {
					deleted, err := syncinfo.ConvertToDeletion(syncBytes)
					if err != nil {
						return err
					}
					s.phantom.SetKind(r.Path(), workspace.KindFile)
					s.phantom.SetSyncBytes(r.Path(), deleted, true)
					s.stats.AddPhantomsCreated(1)
				}
				info.ResourceChanged(r.Path())
				return nil
			}

			if r.Kind() == workspace.KindProject {
				// The top-level pruned folder keeps its Entries line, so
				// the project itself has nothing worth remembering.
				s.phantom.Purge(r.Path(), true)
				return nil
			}

			fs, err := s.folderSyncLocked(r)
			if err != nil || fs == nil {
				return err
			}
			s.phantom.SetKind(r.Path(), r.Kind())
			s.phantom.SetFolderSync(r.Path(), fs.Clone(), true)
			info.FolderChanged(r.Path())
			syncBytes, err := s.syncBytesLocked(r)
			if err != nil {
				return err
			}
			s.phantom.SetSyncBytes(r.Path(), syncBytes, true)
			s.stats.AddPhantomsCreated(1)
			return nil
		})
	})
}

// syncBytesLocked is the op-locked core of SyncBytes, including the direct
// disk fallback when the workspace is delivering a delta.
func (s *Synchronizer) syncBytesLocked(r workspace.Resource) ([]byte, error) {
	parent := r.Parent()
	if parent.Kind() == workspace.KindRoot || !s.isValid(parent) {
		return nil, nil
	}
	if err := s.loadChildSyncLocked(parent); err != nil {
		if errors.Is(err, batch.ErrWorkspaceLocked) {
			return s.syncBytesFromDisk(r)
		}
		return nil, err
	}
	return s.cacheFor(r).SyncBytes(r.Path()), nil
}

// PrepareForMoveDelete moves the sync info of the resource's whole subtree
// into phantom space and purges the session cache for it, so deletions keep
// reportable sync info at the source while the destination starts clean.
func (s *Synchronizer) PrepareForMoveDelete(ctx context.Context, r workspace.Resource) error {
	err := s.ws.Walk(r, workspace.DepthInfinite, func(inner workspace.Resource) (bool, error) {
		if err := s.PrepareForDeletion(ctx, inner); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	return s.withOp(func() error {
		s.session.PurgeResourceSync(r.Path())
		if r.Kind() != workspace.KindFile {
			s.session.Purge(r.Path(), true)
		}
		return nil
	})
}

// HandleDeleted clears cached dirty state for a resource found to be gone.
// The move/delete preparation is not invoked for external deletions, so this
// is the safety net.
func (s *Synchronizer) HandleDeleted(ctx context.Context, r workspace.Resource) error {
	if r.Exists() {
		return nil
	}
	return s.withBatch(ctx, r, func(ctx context.Context) error {
		return s.withOp(func() error {
			s.adjustDirtyLocked(r, cache.Recompute)
			return nil
		})
	})
}

// Flush writes pending sync information beneath root to disk and purges the
// session cache for it, so the next access re-reads disk. May flush more
// than strictly needed, never less.
func (s *Synchronizer) Flush(ctx context.Context, root workspace.Resource, deep bool) error {
	return s.withBatch(ctx, root, func(ctx context.Context) error {
		flushErr := s.lock.Flush(ctx)
		_ = s.withOp(func() error {
			s.session.Purge(root.Path(), deep)
			return nil
		})
		return flushErr
	})
}

// Deconfigure removes all remembered state for a project being disconnected:
// a deep flush followed by purging the project's phantoms, forgetting
// pruned-folder sync.
func (s *Synchronizer) Deconfigure(ctx context.Context, project workspace.Resource) error {
	return s.withBatch(ctx, project, func(ctx context.Context) error {
		if err := s.Flush(ctx, project, true); err != nil {
			return err
		}
		return s.withOp(func() error {
			s.phantom.Purge(project.Path(), true)
			return nil
		})
	})
}

// SyncFilesChanged reacts to control files changed on disk outside the
// workbench: the cache for each folder is dropped and the folder plus its
// immediate children are broadcast.
func (s *Synchronizer) SyncFilesChanged(ctx context.Context, folders []workspace.Resource) error {
	for _, root := range folders {
		var changed []workspace.Resource
		err := s.withOp(func() error {
			s.session.Purge(root.Path(), false)
			changed = append(changed, root)
			members, err := s.ws.Members(root)
			if err != nil {
				return err
			}
			changed = append(changed, members...)
			return nil
		})
		if err != nil {
			return err
		}
		s.broadcast(changed)
	}
	return nil
}

// IsSyncInfoLoaded reports whether the sync info for every folder relevant
// to the given resources is already in the cache.
func (s *Synchronizer) IsSyncInfoLoaded(resources []workspace.Resource, depth workspace.Depth) (bool, error) {
	folders := s.parentFolders(resources, depth)
	loaded := true
	err := s.withOp(func() error {
		for _, folder := range folders {
			if !s.cacheFor(folder).IsSyncLoaded(folder.Path()) {
				loaded = false
				return nil
			}
		}
		return nil
	})
	return loaded, err
}

// EnsureSyncInfoLoaded loads the resource sync, folder sync, and ignore
// patterns for every folder relevant to the given resources.
func (s *Synchronizer) EnsureSyncInfoLoaded(ctx context.Context, resources []workspace.Resource, depth workspace.Depth) error {
	for _, folder := range s.parentFolders(resources, depth) {
		err := s.withOp(func() error {
			if err := s.loadChildSyncLocked(folder); err != nil {
				return err
			}
			if _, err := s.folderSyncLocked(folder); err != nil {
				return err
			}
			_, err := s.ignoresLocked(folder)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// parentFolders collects the projects and parent folders of the resources,
// plus child folders to the requested depth; that is where sync info lives.
func (s *Synchronizer) parentFolders(resources []workspace.Resource, depth workspace.Depth) []workspace.Resource {
	seen := make(map[workspace.Path]workspace.Resource)
	for _, r := range resources {
		project := r.Project()
		seen[project.Path()] = project
		if r.Kind() != workspace.KindProject && r.Kind() != workspace.KindRoot {
			parent := r.Parent()
			seen[parent.Path()] = parent
		}
		if depth == workspace.DepthZero {
			continue
		}
		_ = s.ws.Walk(r, depth, func(inner workspace.Resource) (bool, error) {
			if inner.Kind() == workspace.KindFolder || inner.Kind() == workspace.KindProject {
				seen[inner.Path()] = inner
			}
			return true, nil
		})
	}
	out := make([]workspace.Resource, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	return out
}
