package synchronizer

import (
	"context"

	"github.com/bamsammich/cvsync/internal/batch"
	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// SetNotifyInfo upserts the file's entry in the parent's Notify file, or
// removes it when info is nil. An existing entry for the same name is
// replaced silently. Notify state never touches dirty indicators and needs
// no batch scope, only the op lock.
func (s *Synchronizer) SetNotifyInfo(r workspace.Resource, info *syncinfo.NotifyInfo) error {
	return s.withOp(func() error {
		parent := r.Parent()
		infos, err := syncfile.ReadAllNotify(parent)
		if err != nil {
			return err
		}
		if infos == nil {
			// Nothing recorded and nothing to remove.
			if info == nil {
				return nil
			}
			return syncfile.WriteAllNotify(parent, []*syncinfo.NotifyInfo{info})
		}
		merged := upsertNotify(infos, r.Name(), info)
		return syncfile.WriteAllNotify(parent, merged)
	})
}

// NotifyInfo returns the file's Notify entry, or nil if none.
func (s *Synchronizer) NotifyInfo(r workspace.Resource) (*syncinfo.NotifyInfo, error) {
	var out *syncinfo.NotifyInfo
	err := s.withOp(func() error {
		infos, err := syncfile.ReadAllNotify(r.Parent())
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.Name == r.Name() {
				out = info
				return nil
			}
		}
		return nil
	})
	return out, err
}

// DeleteNotifyInfo removes the file's Notify entry if present.
func (s *Synchronizer) DeleteNotifyInfo(r workspace.Resource) error {
	return s.SetNotifyInfo(r, nil)
}

func upsertNotify(infos []*syncinfo.NotifyInfo, name string, replacement *syncinfo.NotifyInfo) []*syncinfo.NotifyInfo {
	out := make([]*syncinfo.NotifyInfo, 0, len(infos)+1)
	for _, info := range infos {
		if info.Name != name {
			out = append(out, info)
		}
	}
	if replacement != nil {
		out = append(out, replacement)
	}
	return out
}

// SetBaserevInfo upserts the file's entry in the parent's Baserev file.
// Symmetric with SetNotifyInfo, including the silent replace.
func (s *Synchronizer) SetBaserevInfo(r workspace.Resource, info *syncinfo.BaserevInfo) error {
	return s.withOp(func() error {
		parent := r.Parent()
		infos, err := syncfile.ReadAllBaserev(parent)
		if err != nil {
			return err
		}
		if infos == nil {
			if info == nil {
				return nil
			}
			return syncfile.WriteAllBaserev(parent, []*syncinfo.BaserevInfo{info})
		}
		merged := upsertBaserev(infos, r.Name(), info)
		return syncfile.WriteAllBaserev(parent, merged)
	})
}

// BaserevInfo returns the file's Baserev entry, or nil if none.
func (s *Synchronizer) BaserevInfo(r workspace.Resource) (*syncinfo.BaserevInfo, error) {
	var out *syncinfo.BaserevInfo
	err := s.withOp(func() error {
		infos, err := syncfile.ReadAllBaserev(r.Parent())
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.Name == r.Name() {
				out = info
				return nil
			}
		}
		return nil
	})
	return out, err
}

// DeleteBaserevInfo removes the file's Baserev entry if present.
func (s *Synchronizer) DeleteBaserevInfo(r workspace.Resource) error {
	return s.SetBaserevInfo(r, nil)
}

func upsertBaserev(infos []*syncinfo.BaserevInfo, name string, replacement *syncinfo.BaserevInfo) []*syncinfo.BaserevInfo {
	out := make([]*syncinfo.BaserevInfo, 0, len(infos)+1)
	for _, info := range infos {
		if info.Name != name {
			out = append(out, info)
		}
	}
	if replacement != nil {
		out = append(out, replacement)
	}
	return out
}

// CopyFileToBase stores a pristine copy of the file for offline edit. The
// file must be managed and neither an addition nor a deletion.
func (s *Synchronizer) CopyFileToBase(ctx context.Context, file workspace.Resource) error {
	return s.withBatch(ctx, file, func(ctx context.Context) error {
		syncBytes, err := s.SyncBytes(ctx, file)
		if err != nil {
			return err
		}
		if syncBytes == nil || syncinfo.IsAddition(syncBytes) || syncinfo.IsDeletion(syncBytes) {
			return nil
		}
		if err := syncfile.CopyToBase(ctx, file, s.limiter); err != nil {
			return err
		}
		batch.FromContext(ctx).ResourceChanged(file.Path())
		return nil
	})
}

// RestoreFileFromBase copies the pristine Base copy back over the working
// file. The file must exist remotely.
func (s *Synchronizer) RestoreFileFromBase(ctx context.Context, file workspace.Resource) error {
	return s.withBatch(ctx, file, func(ctx context.Context) error {
		syncBytes, err := s.SyncBytes(ctx, file)
		if err != nil {
			return err
		}
		if syncBytes == nil || syncinfo.IsAddition(syncBytes) {
			return nil
		}
		if err := syncfile.RestoreFromBase(ctx, file, s.limiter); err != nil {
			return err
		}
		batch.FromContext(ctx).ResourceChanged(file.Path())
		return nil
	})
}

// DeleteFileFromBase removes the file's Base copy.
func (s *Synchronizer) DeleteFileFromBase(ctx context.Context, file workspace.Resource) error {
	syncBytes, err := s.SyncBytes(ctx, file)
	if err != nil {
		return err
	}
	if syncBytes == nil || syncinfo.IsAddition(syncBytes) {
		return nil
	}
	return syncfile.DeleteBase(file)
}

// IsEdited reports whether an edit was performed on the file and not yet
// committed or undone.
func (s *Synchronizer) IsEdited(file workspace.Resource) bool {
	return syncfile.IsEdited(file)
}

// IsModifiedSinceBase compares the working file against its Base copy by
// content digest.
func (s *Synchronizer) IsModifiedSinceBase(file workspace.Resource) (bool, error) {
	return syncfile.IsModifiedSinceBase(file)
}
