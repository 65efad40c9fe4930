// Package stats tracks synchronizer activity using lock-free atomic counters.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector counts cache loads, flushes, and broadcasts. All methods are
// safe for concurrent use.
type Collector struct {
	foldersLoaded     atomic.Int64
	entriesRead       atomic.Int64
	foldersFlushed    atomic.Int64
	flushErrors       atomic.Int64
	broadcasts        atomic.Int64
	resourcesNotified atomic.Int64
	phantomsCreated   atomic.Int64
	startTime         time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFoldersLoaded(n int64)     { c.foldersLoaded.Add(n) }
func (c *Collector) AddEntriesRead(n int64)       { c.entriesRead.Add(n) }
func (c *Collector) AddFoldersFlushed(n int64)    { c.foldersFlushed.Add(n) }
func (c *Collector) AddFlushErrors(n int64)       { c.flushErrors.Add(n) }
func (c *Collector) AddBroadcasts(n int64)        { c.broadcasts.Add(n) }
func (c *Collector) AddResourcesNotified(n int64) { c.resourcesNotified.Add(n) }
func (c *Collector) AddPhantomsCreated(n int64)   { c.phantomsCreated.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FoldersLoaded     int64
	EntriesRead       int64
	FoldersFlushed    int64
	FlushErrors       int64
	Broadcasts        int64
	ResourcesNotified int64
	PhantomsCreated   int64
	Elapsed           time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FoldersLoaded:     c.foldersLoaded.Load(),
		EntriesRead:       c.entriesRead.Load(),
		FoldersFlushed:    c.foldersFlushed.Load(),
		FlushErrors:       c.flushErrors.Load(),
		Broadcasts:        c.broadcasts.Load(),
		ResourcesNotified: c.resourcesNotified.Load(),
		PhantomsCreated:   c.phantomsCreated.Load(),
		Elapsed:           time.Since(c.startTime),
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"loaded=%d entries=%d flushed=%d flush_errors=%d broadcasts=%d notified=%d phantoms=%d",
		s.FoldersLoaded, s.EntriesRead, s.FoldersFlushed, s.FlushErrors,
		s.Broadcasts, s.ResourcesNotified, s.PhantomsCreated,
	)
}
