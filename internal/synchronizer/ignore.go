package synchronizer

import (
	"context"
	"fmt"

	"github.com/bamsammich/cvsync/internal/batch"
	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// IsIgnored reports whether the resource's leaf name matches its parent
// folder's ignore patterns. The root, projects, and resources that do not
// exist are never ignored.
func (s *Synchronizer) IsIgnored(r workspace.Resource) (bool, error) {
	if r.Kind() == workspace.KindRoot || r.Kind() == workspace.KindProject || !r.Exists() {
		return false, nil
	}
	var ignored bool
	err := s.withOp(func() error {
		matcher, err := s.ignoresLocked(r.Parent())
		if err != nil {
			return err
		}
		ignored = matcher.Match(r.Name())
		return nil
	})
	return ignored, err
}

// AddIgnored appends a pattern to the folder's ignore list, rewriting the
// ignore file. Every currently unmanaged descendant is broadcast: they are
// the only resources whose ignored status could change.
func (s *Synchronizer) AddIgnored(ctx context.Context, folder workspace.Resource, pattern string) error {
	if folder.Kind() == workspace.KindRoot || !folder.Exists() {
		return fmt.Errorf("cannot add ignore pattern to %s", folder.Path())
	}
	return s.withBatch(ctx, folder, func(ctx context.Context) error {
		var affected []workspace.Resource
		err := s.withOp(func() error {
			patterns, err := syncfile.ReadCVSIgnore(folder)
			if err != nil {
				return err
			}
			for _, p := range patterns {
				if p == pattern {
					return nil // already present
				}
			}
			patterns = append(patterns, pattern)
			s.session.SetIgnores(folder.Path(), syncinfo.CompileIgnores(patterns))
			if err := syncfile.WriteCVSIgnore(folder, patterns); err != nil {
				return err
			}
			return s.accumulateNonManagedLocked(folder, &affected)
		})
		if err != nil {
			return err
		}
		s.broadcast(affected)
		return nil
	})
}

// HandleIgnoreFileChange records an externally changed ignore file so the
// folder and its siblings are broadcast when the batch closes.
func (s *Synchronizer) HandleIgnoreFileChange(ctx context.Context, ignoreFile workspace.Resource) error {
	if ignoreFile.Kind() != workspace.KindFile {
		return fmt.Errorf("%s is not an ignore file", ignoreFile.Path())
	}
	return s.withBatch(ctx, ignoreFile, func(ctx context.Context) error {
		return s.withOp(func() error {
			// Forget the compiled patterns so the next IsIgnored reloads
			// the rewritten file.
			s.session.PurgeIgnores(ignoreFile.Parent().Path())
			batch.FromContext(ctx).IgnoreFileChanged(ignoreFile.Path())
			return nil
		})
	})
}

// ignoresLocked returns the folder's compiled matcher, loading the ignore
// file on first use. Requires the op lock.
func (s *Synchronizer) ignoresLocked(folder workspace.Resource) (*syncinfo.NameMatcher, error) {
	if m, cached := s.session.Ignores(folder.Path()); cached && m != nil {
		return m, nil
	}
	patterns, err := syncfile.ReadCVSIgnore(folder)
	if err != nil {
		return nil, err
	}
	m := syncinfo.CompileIgnores(patterns)
	s.session.SetIgnores(folder.Path(), m)
	return m, nil
}

// accumulateNonManagedLocked recursively collects every descendant of the
// folder without sync info. Requires the op lock.
func (s *Synchronizer) accumulateNonManagedLocked(folder workspace.Resource, out *[]workspace.Resource) error {
	if err := s.loadChildSyncLocked(folder); err != nil {
		return err
	}
	children, err := s.ws.Members(folder)
	if err != nil {
		return nil
	}
	var folders []workspace.Resource
	// Files first, then folders, to stay friendly to the caching scheme.
	for _, child := range children {
		if s.cacheFor(child).SyncBytes(child.Path()) == nil {
			*out = append(*out, child)
		}
		if child.Kind() != workspace.KindFile {
			folders = append(folders, child)
		}
	}
	for _, child := range folders {
		if err := s.accumulateNonManagedLocked(child, out); err != nil {
			return err
		}
	}
	return nil
}
