package synchronizer

import (
	"fmt"
	"strings"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// CommitError aggregates the per-folder failures of a batch commit. The
// commit keeps going past a failing folder, so one error can carry several
// causes.
type CommitError struct {
	Folders []workspace.Path
	Errs    []error
}

func (e *CommitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "committing sync info failed for %d folder(s)", len(e.Folders))
	for i, err := range e.Errs {
		fmt.Fprintf(&b, "; %v", err)
		if i >= 2 && len(e.Errs) > 4 {
			fmt.Fprintf(&b, "; (and %d more)", len(e.Errs)-i-1)
			break
		}
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *CommitError) Unwrap() []error { return e.Errs }
