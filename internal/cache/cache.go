// Package cache holds the in-memory sync-info state layered over the disk
// store: a session cache for extant resources, a phantom cache for deleted
// resources whose sync must survive, and the tri-state dirty indicators.
//
// The caches do no locking of their own. Every access is serialised by the
// synchronizer's op lock, which is strictly nested inside the batch scope
// and the workspace scheduling rule. The phantom sidecar keeps a private
// mutex only for its background write batching.
package cache

import (
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// Indicator is the tri-state dirty marker propagated up the tree. The zero
// value means unknown, which readers treat as Recompute.
type Indicator int

const (
	IndicatorUnknown Indicator = iota
	IsDirty
	NotDirty
	Recompute
)

var indicatorNames = [...]string{
	IndicatorUnknown: "unknown",
	IsDirty:          "dirty",
	NotDirty:         "clean",
	Recompute:        "recompute",
}

func (i Indicator) String() string {
	if int(i) < len(indicatorNames) {
		return indicatorNames[i]
	}
	return "unknown"
}

// Cache is the shape shared by the session and phantom caches. The modify
// flag on setters distinguishes a caller mutation from cache population
// during a disk load; population must not reach the phantom sidecar.
type Cache interface {
	SyncBytes(p workspace.Path) []byte
	SetSyncBytes(p workspace.Path, syncBytes []byte, modify bool)
	FolderSync(p workspace.Path) (info *syncinfo.FolderSync, cached bool)
	SetFolderSync(p workspace.Path, info *syncinfo.FolderSync, modify bool)
	DirtyIndicator(p workspace.Path) Indicator
	SetDirtyIndicator(p workspace.Path, ind Indicator)
	FlushDirty(p workspace.Path)
	IsSyncLoaded(p workspace.Path) bool
	MarkSyncLoaded(p workspace.Path)
	PurgeResourceSync(p workspace.Path)
	Purge(p workspace.Path, deep bool)
}
