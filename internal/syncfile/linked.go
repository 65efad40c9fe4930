package syncfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bamsammich/cvsync/internal/workspace"
)

// IsLinked reports whether the folder's storage lies outside its project
// root: either the folder (or an ancestor inside the project) is a symlink
// resolving elsewhere, or the folder sits on a different filesystem than the
// project. Control files of linked folders are never read or written.
//
// Detection failures are treated as not linked; refusing to read on a
// transient stat error would silently discard sync info.
func IsLinked(folder workspace.Resource) bool {
	if folder.Kind() == workspace.KindRoot || folder.Kind() == workspace.KindProject {
		return false
	}
	projectLoc, err := filepath.EvalSymlinks(folder.Project().Location())
	if err != nil {
		return false
	}
	loc := folder.Location()
	resolved, err := filepath.EvalSymlinks(loc)
	if err != nil {
		// The folder may not exist yet; fall back to the lexical location.
		resolved = loc
	}
	if !strings.HasPrefix(resolved+string(filepath.Separator), projectLoc+string(filepath.Separator)) {
		return true
	}
	if _, err := os.Stat(loc); err != nil {
		return false
	}
	folderDev, err := deviceOf(loc)
	if err != nil {
		return false
	}
	projectDev, err := deviceOf(projectLoc)
	if err != nil {
		return false
	}
	return folderDev != projectDev
}
