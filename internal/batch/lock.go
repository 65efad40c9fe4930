// Package batch implements the reentrant batching lock that defers sync-info
// disk writes and change broadcasts until the outermost scope closes.
//
// A scope belongs to one goroutine and travels in its context.Context.
// Scopes on different goroutines proceed concurrently when their scheduling
// rules are disjoint and serialise when they overlap.
//
// Lock order is strict: the workspace scheduling rule encloses the batch
// scope, which encloses the synchronizer's op lock. Acquire may block on
// conflicting rules; it must therefore never be called with the op lock held.
package batch

import (
	"context"
	"errors"
	"sort"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// ErrInvalidScope reports a nested acquire whose rule is not contained in
// the scope already open on the context.
var ErrInvalidScope = errors.New("nested batch rule not contained in the active rule")

// ErrWorkspaceLocked reports that the workspace is delivering a change delta
// and bulk cache loads are forbidden; callers fall back to direct disk reads.
var ErrWorkspaceLocked = errors.New("workspace locked during delta delivery")

// FlushFunc commits a scope's accumulated changes. It is called on the
// outermost release and on each mid-batch Flush, and only when the scope has
// recorded changes since the last flush.
type FlushFunc func(ctx context.Context, info *ThreadInfo) error

// ThreadInfo accumulates the changes recorded under one batch scope.
type ThreadInfo struct {
	rule  workspace.Path
	nest  int
	flush FlushFunc

	changedResources map[workspace.Path]struct{}
	changedFolders   map[workspace.Path]struct{}
	changedIgnores   map[workspace.Path]struct{}
}

func newThreadInfo(rule workspace.Path, flush FlushFunc) *ThreadInfo {
	return &ThreadInfo{
		rule:             rule,
		flush:            flush,
		changedResources: make(map[workspace.Path]struct{}),
		changedFolders:   make(map[workspace.Path]struct{}),
		changedIgnores:   make(map[workspace.Path]struct{}),
	}
}

// Rule returns the scheduling rule the scope was opened with.
func (t *ThreadInfo) Rule() workspace.Path { return t.rule }

// IsEmpty reports whether no changes have been recorded.
func (t *ThreadInfo) IsEmpty() bool {
	return len(t.changedResources) == 0 && len(t.changedFolders) == 0 && len(t.changedIgnores) == 0
}

// ResourceChanged records a changed resource.
func (t *ThreadInfo) ResourceChanged(p workspace.Path) {
	t.changedResources[p] = struct{}{}
}

// FolderChanged records a changed folder.
func (t *ThreadInfo) FolderChanged(p workspace.Path) {
	t.changedFolders[p] = struct{}{}
}

// IgnoreFileChanged records a changed ignore file.
func (t *ThreadInfo) IgnoreFileChanged(p workspace.Path) {
	t.changedIgnores[p] = struct{}{}
}

// ChangedResources returns the recorded resources, sorted.
func (t *ThreadInfo) ChangedResources() []workspace.Path { return sortedKeys(t.changedResources) }

// ChangedFolders returns the recorded folders, sorted.
func (t *ThreadInfo) ChangedFolders() []workspace.Path { return sortedKeys(t.changedFolders) }

// ChangedIgnoreFiles returns the recorded ignore files, sorted.
func (t *ThreadInfo) ChangedIgnoreFiles() []workspace.Path { return sortedKeys(t.changedIgnores) }

// Reset drops the accumulated changes, keeping the scope open.
func (t *ThreadInfo) Reset() {
	clear(t.changedResources)
	clear(t.changedFolders)
	clear(t.changedIgnores)
}

func sortedKeys(m map[workspace.Path]struct{}) []workspace.Path {
	out := make([]workspace.Path, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type ctxKey struct{}

// FromContext returns the batch scope open on the context, nil if none.
func FromContext(ctx context.Context) *ThreadInfo {
	info, _ := ctx.Value(ctxKey{}).(*ThreadInfo)
	return info
}

// Lock serialises batch scopes with overlapping scheduling rules.
type Lock struct {
	ch      chan struct{} // one-slot semaphore guarding active and changed
	active  map[*ThreadInfo]struct{}
	changed chan struct{} // closed and replaced on every release
}

// NewLock creates a batch lock.
func NewLock() *Lock {
	l := &Lock{
		ch:      make(chan struct{}, 1),
		active:  make(map[*ThreadInfo]struct{}),
		changed: make(chan struct{}),
	}
	l.ch <- struct{}{}
	return l
}

func (l *Lock) lock()   { <-l.ch }
func (l *Lock) unlock() { l.ch <- struct{}{} }

// Acquire opens (or nests) a batch scope for the resource path on the given
// context, returning the context that carries the scope. A fresh scope
// blocks until every overlapping scope on other contexts has closed;
// blocking respects ctx cancellation.
func (l *Lock) Acquire(ctx context.Context, p workspace.Path, flush FlushFunc) (context.Context, error) {
	if info := FromContext(ctx); info != nil {
		if !info.rule.Contains(p) {
			return ctx, ErrInvalidScope
		}
		info.nest++
		return ctx, nil
	}

	info := newThreadInfo(p, flush)
	for {
		l.lock()
		if !l.conflicts(info) {
			l.active[info] = struct{}{}
			l.unlock()
			return context.WithValue(ctx, ctxKey{}, info), nil
		}
		wait := l.changed
		l.unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx, ctx.Err()
		}
	}
}

func (l *Lock) conflicts(info *ThreadInfo) bool {
	for other := range l.active {
		if other != info && other.rule.Overlaps(info.rule) {
			return true
		}
	}
	return false
}

// Release closes one nesting level of the context's scope. The outermost
// release invokes the scope's flush callback once if the scope recorded any
// changes (an empty scope is not flushed) and then discards the thread info,
// even if the flush fails.
func (l *Lock) Release(ctx context.Context) error {
	info := FromContext(ctx)
	if info == nil {
		return nil
	}
	if info.nest > 0 {
		info.nest--
		return nil
	}

	var err error
	if info.flush != nil && !info.IsEmpty() {
		err = info.flush(ctx, info)
		// The thread info is discarded even if the flush failed; an
		// unbalanced extra release must not replay it.
		info.Reset()
	}

	l.lock()
	delete(l.active, info)
	close(l.changed)
	l.changed = make(chan struct{})
	l.unlock()
	return err
}

// Flush commits the context's scope mid-batch, leaving the scope open with
// an empty change set.
func (l *Lock) Flush(ctx context.Context) error {
	info := FromContext(ctx)
	if info == nil || info.IsEmpty() {
		return nil
	}
	err := info.flush(ctx, info)
	info.Reset()
	return err
}

// IsWithinActiveScope reports whether the context carries a scope whose rule
// contains p.
func (l *Lock) IsWithinActiveScope(ctx context.Context, p workspace.Path) bool {
	info := FromContext(ctx)
	return info != nil && info.rule.Contains(p)
}
