package cache

import (
	"log/slog"
	"sort"

	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// phantomEntry is the remembered sync state of a deleted resource.
type phantomEntry struct {
	kind          workspace.Kind
	syncBytes     []byte
	folderSync    *syncinfo.FolderSync
	folderSyncSet bool
	dirty         Indicator
}

// Phantom caches sync info for resources that no longer exist on disk, so
// their removal can still be reported against the repository. Entries are
// mirrored into a sidecar database when one is attached, surviving process
// restarts.
type Phantom struct {
	entries map[workspace.Path]*phantomEntry
	sidecar *Sidecar
	logger  *slog.Logger
}

var _ Cache = (*Phantom)(nil)

// NewPhantom creates a phantom cache. sidecar may be nil; logger nil means
// slog.Default().
func NewPhantom(sidecar *Sidecar, logger *slog.Logger) *Phantom {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Phantom{
		entries: make(map[workspace.Path]*phantomEntry),
		sidecar: sidecar,
		logger:  logger,
	}
	if sidecar != nil {
		if err := sidecar.Load(p.restore); err != nil {
			logger.Warn("phantom sidecar load failed", "error", err)
		}
	}
	return p
}

// restore repopulates one entry from the sidecar at open time.
func (c *Phantom) restore(path workspace.Path, kind workspace.Kind, syncBytes []byte, fs *syncinfo.FolderSync) {
	e := &phantomEntry{kind: kind, syncBytes: syncBytes}
	if fs != nil {
		e.folderSync = fs
		e.folderSyncSet = true
	}
	c.entries[path] = e
}

func (c *Phantom) entry(p workspace.Path) *phantomEntry {
	e, ok := c.entries[p]
	if !ok {
		e = &phantomEntry{kind: workspace.KindFile}
		c.entries[p] = e
	}
	return e
}

// SetKind records the resource kind so phantom members can be rebuilt.
func (c *Phantom) SetKind(p workspace.Path, kind workspace.Kind) {
	c.entry(p).kind = kind
}

// Kind returns the recorded kind of a phantom, KindFile if unknown.
func (c *Phantom) Kind(p workspace.Path) workspace.Kind {
	if e, ok := c.entries[p]; ok {
		return e.kind
	}
	return workspace.KindFile
}

// Has reports whether p has any phantom state.
func (c *Phantom) Has(p workspace.Path) bool {
	e, ok := c.entries[p]
	return ok && (e.syncBytes != nil || e.folderSyncSet)
}

// SyncBytes returns the phantom sync bytes for p, nil if none.
func (c *Phantom) SyncBytes(p workspace.Path) []byte {
	if e, ok := c.entries[p]; ok {
		return e.syncBytes
	}
	return nil
}

// SetSyncBytes stores phantom sync bytes for p; nil clears them. Mutations
// (modify=true) are mirrored to the sidecar.
func (c *Phantom) SetSyncBytes(p workspace.Path, syncBytes []byte, modify bool) {
	e := c.entry(p)
	e.syncBytes = syncBytes
	if modify {
		c.persist(p, e)
	}
}

// FolderSync returns the phantom folder sync and whether one is recorded.
func (c *Phantom) FolderSync(p workspace.Path) (*syncinfo.FolderSync, bool) {
	if e, ok := c.entries[p]; ok && e.folderSyncSet {
		return e.folderSync, true
	}
	return nil, false
}

// SetFolderSync stores phantom folder sync for p.
func (c *Phantom) SetFolderSync(p workspace.Path, info *syncinfo.FolderSync, modify bool) {
	e := c.entry(p)
	e.folderSync = info
	e.folderSyncSet = true
	if modify {
		c.persist(p, e)
	}
}

// DirtyIndicator returns the cached indicator, IndicatorUnknown if none.
// Dirty state is session-only and never persisted.
func (c *Phantom) DirtyIndicator(p workspace.Path) Indicator {
	if e, ok := c.entries[p]; ok {
		return e.dirty
	}
	return IndicatorUnknown
}

// SetDirtyIndicator caches the dirty indicator for p.
func (c *Phantom) SetDirtyIndicator(p workspace.Path, ind Indicator) {
	c.entry(p).dirty = ind
}

// FlushDirty forgets the dirty indicator for p.
func (c *Phantom) FlushDirty(p workspace.Path) {
	if e, ok := c.entries[p]; ok {
		e.dirty = IndicatorUnknown
	}
}

// IsSyncLoaded always reports true: phantom state is only ever populated
// explicitly, never lazily from disk.
func (c *Phantom) IsSyncLoaded(workspace.Path) bool { return true }

// MarkSyncLoaded is a no-op for the phantom cache.
func (c *Phantom) MarkSyncLoaded(workspace.Path) {}

// Children returns the phantom paths directly under parent, sorted.
func (c *Phantom) Children(parent workspace.Path) []workspace.Path {
	var out []workspace.Path
	for p, e := range c.entries {
		if p.Parent() == parent && (e.syncBytes != nil || e.folderSyncSet) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PurgeResourceSync forgets only the phantom sync bytes for p.
func (c *Phantom) PurgeResourceSync(p workspace.Path) {
	if e, ok := c.entries[p]; ok {
		e.syncBytes = nil
		c.persist(p, e)
	}
}

// Purge drops phantom state for p, and for its whole subtree when deep.
func (c *Phantom) Purge(p workspace.Path, deep bool) {
	c.drop(p)
	for key := range c.entries {
		if deep && p.Contains(key) {
			c.drop(key)
			continue
		}
		if key.Parent() == p {
			c.drop(key)
		}
	}
}

func (c *Phantom) drop(p workspace.Path) {
	if _, ok := c.entries[p]; !ok {
		return
	}
	delete(c.entries, p)
	if c.sidecar != nil {
		c.sidecar.Delete(p)
	}
}

func (c *Phantom) persist(p workspace.Path, e *phantomEntry) {
	if c.sidecar == nil {
		return
	}
	if e.syncBytes == nil && !e.folderSyncSet {
		c.sidecar.Delete(p)
		return
	}
	var fs *syncinfo.FolderSync
	if e.folderSyncSet {
		fs = e.folderSync
	}
	c.sidecar.Upsert(p, e.kind, e.syncBytes, fs)
}
