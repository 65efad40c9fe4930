package syncfile

import (
	"errors"
	"fmt"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// ErrLinkedFolder is returned when a write is attempted through the control
// directory of a linked folder.
var ErrLinkedFolder = errors.New("control files of a linked folder are never written")

// IoError wraps a filesystem failure with the logical path it occurred on,
// so a flush can report which folder's control data is stale.
type IoError struct {
	Path workspace.Path
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("sync file i/o for %s: %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func ioErr(r workspace.Resource, err error) error {
	return &IoError{Path: r.Path(), Err: err}
}
