package synchronizer

import (
	"github.com/bamsammich/cvsync/internal/cache"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// ModificationState is the answer a caller gets about a resource's local
// modification status.
type ModificationState int

const (
	// StateUnknown means the state must be recomputed from children.
	StateUnknown ModificationState = iota
	StateDirty
	StateClean
)

var modStateNames = [...]string{
	StateUnknown: "unknown",
	StateDirty:   "dirty",
	StateClean:   "clean",
}

func (m ModificationState) String() string {
	if int(m) < len(modStateNames) {
		return modStateNames[m]
	}
	return "unknown"
}

// adjustDirtyLocked writes the indicator for the resource and walks up the
// ancestor chain: a dirty child dirties every ancestor, while clean and
// recompute transitions force lazy re-evaluation above. The ascent stops as
// soon as an ancestor already carries the target indicator. Requires the op
// lock.
func (s *Synchronizer) adjustDirtyLocked(r workspace.Resource, ind cache.Indicator) {
	if r.Kind() == workspace.KindRoot {
		return
	}
	c := s.cacheFor(r)
	if c.DirtyIndicator(r.Path()) == ind {
		return
	}
	c.SetDirtyIndicator(r.Path(), ind)

	parent := r.Parent()
	switch ind {
	case cache.IsDirty:
		s.adjustDirtyLocked(parent, cache.IsDirty)
	case cache.NotDirty, cache.Recompute:
		s.adjustDirtyLocked(parent, cache.Recompute)
	}
}

// SetDirtyIndicator marks the resource as modified or clean and adjusts the
// ancestor chain accordingly.
func (s *Synchronizer) SetDirtyIndicator(r workspace.Resource, modified bool) {
	ind := cache.NotDirty
	if modified {
		ind = cache.IsDirty
	}
	_ = s.withOp(func() error {
		s.adjustDirtyLocked(r, ind)
		return nil
	})
}

// DirtyIndicator returns the raw cached indicator for the resource.
func (s *Synchronizer) DirtyIndicator(r workspace.Resource) cache.Indicator {
	var out cache.Indicator
	_ = s.withOp(func() error {
		out = s.cacheFor(r).DirtyIndicator(r.Path())
		return nil
	})
	return out
}

// ModificationState maps the cached dirty indicator onto the caller-facing
// tri-state. An absent or recompute indicator reads as unknown; the caller
// is expected to recompute by inspecting children.
func (s *Synchronizer) ModificationState(r workspace.Resource) ModificationState {
	switch s.DirtyIndicator(r) {
	case cache.IsDirty:
		return StateDirty
	case cache.NotDirty:
		return StateClean
	default:
		return StateUnknown
	}
}
