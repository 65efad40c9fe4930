// Package synchronizer manages synchronization information for local
// workspace resources.
//
// A Synchronizer is a thread-safe in-memory cache layered over the on-disk
// control directories and the phantom sidecar. Mutations are grouped into
// batch scopes; disk writes and change broadcasts are deferred until the
// outermost scope on a context closes.
//
// Lock ordering is deterministic: the workspace scheduling rule is always
// taken before the batch scope, and the batch scope before the internal op
// lock. The op lock is held while cache loads read control files and while
// the ignore, Notify and Baserev files are rewritten; a commit takes it only
// to read each folder's cached state and releases it before writing that
// folder's control files.
package synchronizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bamsammich/cvsync/internal/batch"
	"github.com/bamsammich/cvsync/internal/broadcast"
	"github.com/bamsammich/cvsync/internal/cache"
	"github.com/bamsammich/cvsync/internal/stats"
	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// Synchronizer is the facade over the sync-info caches and the disk store.
// Create one per workspace with New and pass it explicitly; there is no
// package-level instance.
type Synchronizer struct {
	ws      *workspace.Workspace
	session *cache.Session
	phantom *cache.Phantom
	lock    *batch.Lock
	bcast   *broadcast.Broadcaster
	stats   *stats.Collector
	logger  *slog.Logger
	limiter *rate.Limiter

	// opMu is the op lock: it serialises every cache access and is strictly
	// nested inside the batch scope. Never acquire a batch scope or a
	// workspace rule while holding it.
	opMu sync.Mutex
}

// Options configures a Synchronizer.
type Options struct {
	// Sidecar persists phantom state across sessions; nil keeps phantoms
	// in memory only.
	Sidecar *cache.Sidecar
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// BaseBWLimit caps Base copy throughput in bytes/sec; 0 means unlimited.
	BaseBWLimit int64
}

// New creates a synchronizer for the workspace.
func New(ws *workspace.Workspace, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.BaseBWLimit > 0 {
		limiter = syncfile.NewBWLimiter(opts.BaseBWLimit)
	}
	return &Synchronizer{
		ws:      ws,
		session: cache.NewSession(),
		phantom: cache.NewPhantom(opts.Sidecar, logger),
		lock:    batch.NewLock(),
		bcast:   broadcast.New(logger),
		stats:   stats.NewCollector(),
		logger:  logger,
		limiter: limiter,
	}
}

// Workspace returns the workspace this synchronizer manages.
func (s *Synchronizer) Workspace() *workspace.Workspace { return s.ws }

// Subscribe registers a change listener; see broadcast.Listener.
func (s *Synchronizer) Subscribe(l broadcast.Listener) broadcast.Registration {
	return s.bcast.Subscribe(l)
}

// Unsubscribe removes a change listener.
func (s *Synchronizer) Unsubscribe(r broadcast.Registration) {
	s.bcast.Unsubscribe(r)
}

// Stats returns a snapshot of the synchronizer's activity counters.
func (s *Synchronizer) Stats() stats.Snapshot { return s.stats.Snapshot() }

// cacheFor routes a resource to the session cache while it exists and to
// the phantom cache once it is gone.
func (s *Synchronizer) cacheFor(r workspace.Resource) cache.Cache {
	if r.Exists() {
		return s.session
	}
	return s.phantom
}

// isValid reports whether the resource exists or has phantom state.
func (s *Synchronizer) isValid(r workspace.Resource) bool {
	return r.Exists() || s.phantom.Has(r.Path())
}

// BeginBatch opens (or nests) a batch scope for the resource on the given
// context. Callers must balance it with EndBatch on the returned context.
func (s *Synchronizer) BeginBatch(ctx context.Context, r workspace.Resource) (context.Context, error) {
	return s.lock.Acquire(ctx, r.Path(), s.commit)
}

// EndBatch closes one nesting level. Pending changes are committed only
// when the calls to EndBatch balance those to BeginBatch; cancellation is
// ignored while the cache is written so cache and disk stay coherent.
func (s *Synchronizer) EndBatch(ctx context.Context) error {
	return s.lock.Release(ctx)
}

// Run opens a batch scope for root, runs fn inside it, and closes the scope
// afterwards, committing on the outermost release.
func (s *Synchronizer) Run(ctx context.Context, root workspace.Resource, fn func(ctx context.Context) error) error {
	return s.withBatch(ctx, root, fn)
}

// IsWithinBatchScope reports whether the context carries a batch scope whose
// rule contains the resource.
func (s *Synchronizer) IsWithinBatchScope(ctx context.Context, r workspace.Resource) bool {
	return s.lock.IsWithinActiveScope(ctx, r.Path())
}

// withBatch runs fn inside a batch scope for r. The operation error wins
// over a commit error, matching the original's finally-release semantics.
func (s *Synchronizer) withBatch(ctx context.Context, r workspace.Resource, fn func(ctx context.Context) error) error {
	ctx, err := s.BeginBatch(ctx, r)
	if err != nil {
		return err
	}
	opErr := fn(ctx)
	relErr := s.EndBatch(ctx)
	if opErr != nil {
		return opErr
	}
	return relErr
}

// withOp runs fn under the op lock.
func (s *Synchronizer) withOp(fn func() error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return fn()
}

// SetFolderSync sets the folder sync info for the specified folder. The
// folder must be a valid container other than the workspace root, and info
// must not be nil; use DeleteFolderSync to remove it.
func (s *Synchronizer) SetFolderSync(ctx context.Context, folder workspace.Resource, info *syncinfo.FolderSync) error {
	if info == nil {
		return fmt.Errorf("set folder sync for %s: info must not be nil", folder.Path())
	}
	// Folder sync on the root is ignored, as with TopLevelAdmin=yes.
	if folder.Kind() == workspace.KindRoot {
		return nil
	}
	if !folder.Kind().IsContainer() || !s.isValid(folder) {
		return fmt.Errorf("cannot set folder sync for %s", folder.Path())
	}
	return s.withBatch(ctx, folder, func(ctx context.Context) error {
		return s.withOp(func() error {
			old, err := s.folderSyncLocked(folder)
			if err != nil {
				return err
			}
			s.cacheFor(folder).SetFolderSync(folder.Path(), info.Clone(), true)
			// A folder that just became managed invalidates ancestor
			// dirty state.
			if old == nil {
				s.adjustDirtyLocked(folder, cache.Recompute)
			}
			batch.FromContext(ctx).FolderChanged(folder.Path())
			return nil
		})
	})
}

// FolderSync returns the folder sync info for the folder, or nil if it is
// not a managed folder.
func (s *Synchronizer) FolderSync(ctx context.Context, folder workspace.Resource) (*syncinfo.FolderSync, error) {
	if folder.Kind() == workspace.KindRoot || !s.isValid(folder) {
		return nil, nil
	}
	var out *syncinfo.FolderSync
	err := s.withOp(func() error {
		fs, err := s.folderSyncLocked(folder)
		if err != nil {
			return err
		}
		out = fs.Clone()
		return nil
	})
	return out, err
}

// DeleteFolderSync deletes the folder sync for the folder and the resource
// sync for all of its children. It does not recurse.
func (s *Synchronizer) DeleteFolderSync(ctx context.Context, folder workspace.Resource) error {
	if folder.Kind() == workspace.KindRoot || !s.isValid(folder) {
		return nil
	}
	return s.withBatch(ctx, folder, func(ctx context.Context) error {
		return s.withOp(func() error {
			// Cache child sync first: deleting the folder sync may drop a
			// phantom, and every child needs a change notification.
			if err := s.loadChildSyncLocked(folder); err != nil {
				return err
			}
			info := batch.FromContext(ctx)
			for _, child := range s.membersLocked(folder) {
				info.ResourceChanged(child.Path())
				s.cacheFor(child).SetSyncBytes(child.Path(), nil, true)
			}
			s.cacheFor(folder).SetFolderSync(folder.Path(), nil, true)
			info.FolderChanged(folder.Path())
			return nil
		})
	})
}

// SetResourceSync sets the resource sync info for the resource. The parent
// folder must be a valid container other than the workspace root.
func (s *Synchronizer) SetResourceSync(ctx context.Context, r workspace.Resource, info *syncinfo.ResourceSync) error {
	if info == nil {
		return fmt.Errorf("set resource sync for %s: info must not be nil", r.Path())
	}
	return s.SetSyncBytes(ctx, r, info.Encode())
}

// ResourceSync returns the decoded resource sync info for the resource, or
// nil if none.
func (s *Synchronizer) ResourceSync(ctx context.Context, r workspace.Resource) (*syncinfo.ResourceSync, error) {
	syncBytes, err := s.SyncBytes(ctx, r)
	if err != nil || syncBytes == nil {
		return nil, err
	}
	return syncinfo.Decode(syncBytes)
}

// SetSyncBytes sets the resource sync for the resource in sync-bytes form.
// The parent folder must be a valid container other than the workspace root.
func (s *Synchronizer) SetSyncBytes(ctx context.Context, r workspace.Resource, syncBytes []byte) error {
	if syncBytes == nil {
		return fmt.Errorf("set sync bytes for %s: bytes must not be nil", r.Path())
	}
	parent := r.Parent()
	if parent.Kind() == workspace.KindRoot || !s.isValid(parent) {
		return fmt.Errorf("cannot set resource sync for %s", r.Path())
	}
	return s.withBatch(ctx, r, func(ctx context.Context) error {
		return s.withOp(func() error {
			if err := s.loadChildSyncLocked(parent); err != nil {
				return err
			}
			s.cacheFor(r).SetSyncBytes(r.Path(), syncBytes, true)
			batch.FromContext(ctx).ResourceChanged(r.Path())
			return nil
		})
	})
}

// SyncBytes returns the resource sync for the resource in sync-bytes form,
// or nil if none. If the bulk sibling load is refused because the workspace
// is delivering a delta, the record is read directly from disk, bypassing
// the session cache.
func (s *Synchronizer) SyncBytes(ctx context.Context, r workspace.Resource) ([]byte, error) {
	var out []byte
	err := s.withOp(func() error {
		syncBytes, err := s.syncBytesLocked(r)
		out = syncBytes
		return err
	})
	return out, err
}

// DeleteResourceSync deletes the resource sync for the resource, if any.
func (s *Synchronizer) DeleteResourceSync(ctx context.Context, r workspace.Resource) error {
	parent := r.Parent()
	if parent.Kind() == workspace.KindRoot || !s.isValid(parent) {
		return nil
	}
	return s.withBatch(ctx, r, func(ctx context.Context) error {
		return s.withOp(func() error {
			if err := s.loadChildSyncLocked(parent); err != nil {
				return err
			}
			c := s.cacheFor(r)
			if c.SyncBytes(r.Path()) == nil {
				return nil // avoid redundant notifications
			}
			c.SetSyncBytes(r.Path(), nil, true)
			c.FlushDirty(r.Path())
			s.adjustDirtyLocked(parent, cache.Recompute)
			batch.FromContext(ctx).ResourceChanged(r.Path())
			return nil
		})
	})
}

// CreatedByMove clears the sync info of a move destination so the file
// appears as a fresh addition.
func (s *Synchronizer) CreatedByMove(ctx context.Context, file workspace.Resource) error {
	return s.DeleteResourceSync(ctx, file)
}

// loadChildSyncLocked reads the folder's Entries file into the caches if it
// has not been read this session, materialising phantoms for recorded
// children that no longer exist. Requires the op lock.
func (s *Synchronizer) loadChildSyncLocked(folder workspace.Resource) error {
	if folder.Kind() == workspace.KindRoot {
		return nil
	}
	c := s.cacheFor(folder)
	if c.IsSyncLoaded(folder.Path()) {
		return nil
	}
	if s.ws.InDeltaDelivery() {
		return batch.ErrWorkspaceLocked
	}
	infos, err := syncfile.ReadAllResourceSync(folder)
	if err != nil {
		return err
	}
	for _, syncBytes := range infos {
		name, err := syncinfo.NameOf(syncBytes)
		if err != nil {
			// A record with no usable name cannot be cached under any
			// resource; log and move on rather than fail the whole folder.
			s.logger.Warn("malformed sync record", "folder", folder.Path(), "error", err)
			continue
		}
		childPath := folder.Path().Append(name)
		var child workspace.Resource
		if syncinfo.IsFolder(syncBytes) {
			child = s.ws.Folder(childPath)
		} else {
			child = s.ws.File(childPath)
		}
		if !child.Exists() {
			s.phantom.SetKind(childPath, child.Kind())
		}
		s.cacheFor(child).SetSyncBytes(childPath, syncBytes, false)
	}
	c.MarkSyncLoaded(folder.Path())
	s.stats.AddFoldersLoaded(1)
	s.stats.AddEntriesRead(int64(len(infos)))
	return nil
}

// folderSyncLocked returns the folder's sync record, loading it from disk on
// first use. Requires the op lock.
func (s *Synchronizer) folderSyncLocked(folder workspace.Resource) (*syncinfo.FolderSync, error) {
	c := s.cacheFor(folder)
	if fs, cached := c.FolderSync(folder.Path()); cached {
		return fs, nil
	}
	fs, err := syncfile.ReadFolderSync(folder)
	if err != nil {
		return nil, err
	}
	c.SetFolderSync(folder.Path(), fs, false)
	return fs, nil
}

// syncBytesFromDisk reads a single resource's sync record straight from the
// parent's Entries file, bypassing the caches.
func (s *Synchronizer) syncBytesFromDisk(r workspace.Resource) ([]byte, error) {
	infos, err := syncfile.ReadAllResourceSync(r.Parent())
	if err != nil || infos == nil {
		return nil, err
	}
	for _, syncBytes := range infos {
		name, err := syncinfo.NameOf(syncBytes)
		if err != nil {
			continue
		}
		if name == r.Name() {
			return syncBytes, nil
		}
	}
	return nil, nil
}

// resourceFor rebuilds a resource handle for a path, consulting the disk
// and the phantom cache for its kind.
func (s *Synchronizer) resourceFor(p workspace.Path) workspace.Resource {
	if p.IsRoot() {
		return s.ws.Root()
	}
	folder := s.ws.Folder(p)
	if folder.Exists() {
		return folder
	}
	if s.phantom.Kind(p).IsContainer() {
		return folder
	}
	return s.ws.File(p)
}
