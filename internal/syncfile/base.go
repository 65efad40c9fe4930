package syncfile

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// basePath returns the location of a file's pristine Base copy.
func basePath(file workspace.Resource) string {
	return filepath.Join(file.Parent().Location(), workspace.MetaDir, baseDir, file.Name())
}

// IsEdited reports whether a Base copy exists for the file, i.e. an edit was
// performed and not yet committed or undone.
func IsEdited(file workspace.Resource) bool {
	if IsLinked(file.Parent()) {
		return false
	}
	info, err := os.Stat(basePath(file))
	return err == nil && !info.IsDir()
}

// CopyToBase stores a pristine copy of the working file in the Base
// directory. Reads are throttled by limiter when non-nil; working files can
// be large.
func CopyToBase(ctx context.Context, file workspace.Resource, limiter *rate.Limiter) error {
	if IsLinked(file.Parent()) {
		return ErrLinkedFolder
	}
	src, err := os.Open(file.Location())
	if err != nil {
		return ioErr(file, err)
	}
	defer src.Close()

	dst := basePath(file)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return ioErr(file, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), file.Name()+".tmp*")
	if err != nil {
		return ioErr(file, err)
	}
	tmpPath := tmp.Name()
	registerTmp(tmpPath)
	defer deregisterTmp(tmpPath)

	if _, err := io.Copy(tmp, limitReader(ctx, src, limiter)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ioErr(file, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ioErr(file, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return ioErr(file, err)
	}
	return nil
}

// RestoreFromBase copies the pristine Base copy back over the working file.
func RestoreFromBase(ctx context.Context, file workspace.Resource, limiter *rate.Limiter) error {
	if IsLinked(file.Parent()) {
		return ErrLinkedFolder
	}
	src, err := os.Open(basePath(file))
	if err != nil {
		return ioErr(file, err)
	}
	defer src.Close()

	tmpDir := file.Parent().Location()
	tmp, err := os.CreateTemp(tmpDir, file.Name()+".tmp*")
	if err != nil {
		return ioErr(file, err)
	}
	tmpPath := tmp.Name()
	registerTmp(tmpPath)
	defer deregisterTmp(tmpPath)

	if _, err := io.Copy(tmp, limitReader(ctx, src, limiter)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return ioErr(file, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return ioErr(file, err)
	}
	if err := os.Rename(tmpPath, file.Location()); err != nil {
		os.Remove(tmpPath)
		return ioErr(file, err)
	}
	return nil
}

// DeleteBase removes the file's Base copy if present.
func DeleteBase(file workspace.Resource) error {
	if IsLinked(file.Parent()) {
		return ErrLinkedFolder
	}
	if err := os.Remove(basePath(file)); err != nil && !os.IsNotExist(err) {
		return ioErr(file, err)
	}
	return nil
}

// HashFile computes the BLAKE3 hash of the file at path, returning the
// hex-encoded digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	digest := h.Sum(nil)
	return hex.EncodeToString(digest), nil
}

// IsModifiedSinceBase compares the working file against its Base copy by
// content digest. A missing Base copy reports modified; a missing working
// file is an error.
func IsModifiedSinceBase(file workspace.Resource) (bool, error) {
	working, err := HashFile(file.Location())
	if err != nil {
		return false, ioErr(file, err)
	}
	base, err := HashFile(basePath(file))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, ioErr(file, err)
	}
	return working != base, nil
}
