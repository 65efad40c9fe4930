package cache

import (
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// sessionEntry is the cached state of one extant resource. Container fields
// are only populated on container paths.
type sessionEntry struct {
	syncBytes []byte

	folderSync       *syncinfo.FolderSync
	folderSyncCached bool

	// syncLoaded marks that the children's resource sync was read from the
	// folder's Entries file; until set, reads go through a disk load.
	syncLoaded bool

	ignores       *syncinfo.NameMatcher
	ignoresCached bool

	dirty Indicator
}

// Session caches sync info for resources that exist in the workspace. It is
// discarded wholesale when external edits invalidate it.
type Session struct {
	entries map[workspace.Path]*sessionEntry
}

var _ Cache = (*Session)(nil)

// NewSession creates an empty session cache.
func NewSession() *Session {
	return &Session{entries: make(map[workspace.Path]*sessionEntry)}
}

func (s *Session) entry(p workspace.Path) *sessionEntry {
	e, ok := s.entries[p]
	if !ok {
		e = &sessionEntry{}
		s.entries[p] = e
	}
	return e
}

// SyncBytes returns the cached sync bytes for p, nil if none.
func (s *Session) SyncBytes(p workspace.Path) []byte {
	if e, ok := s.entries[p]; ok {
		return e.syncBytes
	}
	return nil
}

// SetSyncBytes caches the sync bytes for p; nil clears them.
func (s *Session) SetSyncBytes(p workspace.Path, syncBytes []byte, _ bool) {
	s.entry(p).syncBytes = syncBytes
}

// FolderSync returns the cached folder sync and whether it has been loaded.
func (s *Session) FolderSync(p workspace.Path) (*syncinfo.FolderSync, bool) {
	if e, ok := s.entries[p]; ok && e.folderSyncCached {
		return e.folderSync, true
	}
	return nil, false
}

// SetFolderSync caches the folder sync for p; nil records "no managed
// folder" as a loaded state.
func (s *Session) SetFolderSync(p workspace.Path, info *syncinfo.FolderSync, _ bool) {
	e := s.entry(p)
	e.folderSync = info
	e.folderSyncCached = true
}

// DirtyIndicator returns the cached indicator, IndicatorUnknown if none.
func (s *Session) DirtyIndicator(p workspace.Path) Indicator {
	if e, ok := s.entries[p]; ok {
		return e.dirty
	}
	return IndicatorUnknown
}

// SetDirtyIndicator caches the dirty indicator for p.
func (s *Session) SetDirtyIndicator(p workspace.Path, ind Indicator) {
	s.entry(p).dirty = ind
}

// FlushDirty forgets the dirty indicator for p.
func (s *Session) FlushDirty(p workspace.Path) {
	if e, ok := s.entries[p]; ok {
		e.dirty = IndicatorUnknown
	}
}

// IsSyncLoaded reports whether the folder's child sync has been read from
// disk this session.
func (s *Session) IsSyncLoaded(p workspace.Path) bool {
	e, ok := s.entries[p]
	return ok && e.syncLoaded
}

// MarkSyncLoaded records that the folder's child sync is now cached.
func (s *Session) MarkSyncLoaded(p workspace.Path) {
	s.entry(p).syncLoaded = true
}

// Ignores returns the folder's compiled ignore matcher and whether it is
// cached.
func (s *Session) Ignores(p workspace.Path) (*syncinfo.NameMatcher, bool) {
	if e, ok := s.entries[p]; ok && e.ignoresCached {
		return e.ignores, true
	}
	return nil, false
}

// SetIgnores caches the folder's compiled ignore matcher.
func (s *Session) SetIgnores(p workspace.Path, m *syncinfo.NameMatcher) {
	e := s.entry(p)
	e.ignores = m
	e.ignoresCached = true
}

// PurgeIgnores forgets only the compiled ignore patterns for p.
func (s *Session) PurgeIgnores(p workspace.Path) {
	if e, ok := s.entries[p]; ok {
		e.ignores = nil
		e.ignoresCached = false
	}
}

// PurgeResourceSync forgets only the resource sync bytes for p.
func (s *Session) PurgeResourceSync(p workspace.Path) {
	if e, ok := s.entries[p]; ok {
		e.syncBytes = nil
	}
}

// Purge drops the cached state for p and its immediate children; deep drops
// the whole subtree. Immediate children always go because their resource
// sync was loaded from p's Entries file.
func (s *Session) Purge(p workspace.Path, deep bool) {
	delete(s.entries, p)
	for key := range s.entries {
		if deep && p.Contains(key) {
			delete(s.entries, key)
			continue
		}
		if key.Parent() == p {
			delete(s.entries, key)
		}
	}
}
