// Package syncfile reads and writes the per-folder control directory in the
// on-disk format of the CVS client family.
//
// Every write is atomic (temp file + rename) and every operation refuses to
// touch the control directory of a linked folder. Callers see a linked
// folder as having no control data at all.
package syncfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bamsammich/cvsync/internal/syncinfo"
	"github.com/bamsammich/cvsync/internal/workspace"
)

// Control file names inside the per-folder CVS directory.
const (
	rootFile       = "Root"
	repositoryFile = "Repository"
	entriesFile    = "Entries"
	tagFile        = "Tag"
	notifyFile     = "Notify"
	baserevFile    = "Baserev"
	baseDir        = "Base"
)

// IgnoreFile is the per-folder ignore list, kept in the folder itself.
const IgnoreFile = ".cvsignore"

// staticMarker is the bare Entries line that marks a static folder.
const staticMarker = "D"

func metaPath(folder workspace.Resource, name string) string {
	return filepath.Join(folder.Location(), workspace.MetaDir, name)
}

// HasControlDir reports whether the folder carries a control directory.
func HasControlDir(folder workspace.Resource) bool {
	if IsLinked(folder) {
		return false
	}
	info, err := os.Stat(filepath.Join(folder.Location(), workspace.MetaDir))
	return err == nil && info.IsDir()
}

// readLines returns the lines of a control file, or nil if it does not
// exist. A trailing newline does not produce an empty final line.
func readLines(folder workspace.Resource, name string) ([]string, error) {
	data, err := os.ReadFile(metaPath(folder, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ioErr(folder, err)
	}
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}, nil
	}
	return strings.Split(s, "\n"), nil
}

func writeLines(folder workspace.Resource, name string, lines []string) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	var b bytes.Buffer
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := writeFileAtomic(metaPath(folder, name), b.Bytes(), 0644); err != nil {
		return ioErr(folder, err)
	}
	return nil
}

func readEntries(folder workspace.Resource) (lines [][]byte, static bool, err error) {
	raw, err := readLines(folder, entriesFile)
	if err != nil || raw == nil {
		return nil, false, err
	}
	lines = make([][]byte, 0, len(raw))
	for _, line := range raw {
		if line == "" {
			continue
		}
		if line == staticMarker {
			static = true
			continue
		}
		lines = append(lines, []byte(line))
	}
	return lines, static, nil
}

// ReadAllResourceSync returns the sync bytes of every child recorded in the
// folder's Entries file, or nil if the folder has no Entries file or is
// linked.
func ReadAllResourceSync(folder workspace.Resource) ([][]byte, error) {
	if IsLinked(folder) {
		return nil, nil
	}
	lines, _, err := readEntries(folder)
	return lines, err
}

// WriteAllResourceSync rewrites the folder's Entries file with the given
// sync bytes, one line per child. The static flag appends the bare D line.
func WriteAllResourceSync(folder workspace.Resource, infos [][]byte, static bool) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	lines := make([]string, 0, len(infos)+1)
	for _, info := range infos {
		lines = append(lines, string(info))
	}
	if static {
		lines = append(lines, staticMarker)
	}
	return writeLines(folder, entriesFile, lines)
}

// ReadFolderSync returns the folder's sync record, or nil if the folder has
// no control directory, is missing its Root or Repository file, or is linked.
func ReadFolderSync(folder workspace.Resource) (*syncinfo.FolderSync, error) {
	if IsLinked(folder) {
		return nil, nil
	}
	rootLines, err := readLines(folder, rootFile)
	if err != nil {
		return nil, err
	}
	repoLines, err := readLines(folder, repositoryFile)
	if err != nil {
		return nil, err
	}
	if len(rootLines) == 0 || len(repoLines) == 0 {
		return nil, nil
	}
	fs := &syncinfo.FolderSync{
		Root:       rootLines[0],
		Repository: repoLines[0],
	}
	tagLines, err := readLines(folder, tagFile)
	if err != nil {
		return nil, err
	}
	if len(tagLines) > 0 {
		fs.Tag = syncinfo.ParseTagFile(tagLines[0])
	}
	_, fs.Static, err = readEntries(folder)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// WriteFolderSync writes the folder's Root, Repository, and Tag files. The
// static flag is persisted by rewriting the Entries file's marker line while
// preserving its child entries.
func WriteFolderSync(folder workspace.Resource, fs *syncinfo.FolderSync) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	if err := writeLines(folder, rootFile, []string{fs.Root}); err != nil {
		return err
	}
	if err := writeLines(folder, repositoryFile, []string{fs.Repository}); err != nil {
		return err
	}
	if fs.Tag != nil {
		if err := writeLines(folder, tagFile, []string{fs.Tag.TagFileLine()}); err != nil {
			return err
		}
	} else if err := os.Remove(metaPath(folder, tagFile)); err != nil && !os.IsNotExist(err) {
		return ioErr(folder, err)
	}
	lines, static, err := readEntries(folder)
	if err != nil {
		return err
	}
	if static != fs.Static {
		return WriteAllResourceSync(folder, lines, fs.Static)
	}
	return nil
}

// DeleteFolderSync removes the folder's entire control directory.
func DeleteFolderSync(folder workspace.Resource) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	dir := filepath.Join(folder.Location(), workspace.MetaDir)
	if err := os.RemoveAll(dir); err != nil {
		return ioErr(folder, err)
	}
	return nil
}

// ReadCVSIgnore returns the folder's ignore patterns, or nil if it has no
// ignore file. Blank lines are dropped; the clear marker is preserved in
// order.
func ReadCVSIgnore(folder workspace.Resource) ([]string, error) {
	if IsLinked(folder) {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(folder.Location(), IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ioErr(folder, err)
	}
	var patterns []string
	for line := range strings.SplitSeq(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	if patterns == nil {
		patterns = []string{}
	}
	return patterns, nil
}

// WriteCVSIgnore rewrites the folder's ignore file wholesale.
func WriteCVSIgnore(folder workspace.Resource, patterns []string) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	var b bytes.Buffer
	for _, p := range patterns {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := writeFileAtomic(filepath.Join(folder.Location(), IgnoreFile), b.Bytes(), 0644); err != nil {
		return ioErr(folder, err)
	}
	return nil
}

// ReadAllNotify returns the folder's notify records, or nil if there are
// none. Malformed lines are skipped.
func ReadAllNotify(folder workspace.Resource) ([]*syncinfo.NotifyInfo, error) {
	if IsLinked(folder) {
		return nil, nil
	}
	lines, err := readLines(folder, notifyFile)
	if err != nil || lines == nil {
		return nil, err
	}
	var infos []*syncinfo.NotifyInfo
	for _, line := range lines {
		if line == "" {
			continue
		}
		info, err := syncinfo.ParseNotifyLine(line)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// WriteAllNotify rewrites the folder's Notify file. An empty list removes
// the file.
func WriteAllNotify(folder workspace.Resource, infos []*syncinfo.NotifyInfo) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	if len(infos) == 0 {
		if err := os.Remove(metaPath(folder, notifyFile)); err != nil && !os.IsNotExist(err) {
			return ioErr(folder, err)
		}
		return nil
	}
	lines := make([]string, len(infos))
	for i, info := range infos {
		lines[i] = info.Line()
	}
	return writeLines(folder, notifyFile, lines)
}

// ReadAllBaserev returns the folder's base-revision records, or nil if there
// are none. Malformed lines are skipped.
func ReadAllBaserev(folder workspace.Resource) ([]*syncinfo.BaserevInfo, error) {
	if IsLinked(folder) {
		return nil, nil
	}
	lines, err := readLines(folder, baserevFile)
	if err != nil || lines == nil {
		return nil, err
	}
	var infos []*syncinfo.BaserevInfo
	for _, line := range lines {
		if line == "" {
			continue
		}
		info, err := syncinfo.ParseBaserevLine(line)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// WriteAllBaserev rewrites the folder's Baserev file. An empty list removes
// the file.
func WriteAllBaserev(folder workspace.Resource, infos []*syncinfo.BaserevInfo) error {
	if IsLinked(folder) {
		return ErrLinkedFolder
	}
	if len(infos) == 0 {
		if err := os.Remove(metaPath(folder, baserevFile)); err != nil && !os.IsNotExist(err) {
			return ioErr(folder, err)
		}
		return nil
	}
	lines := make([]string, len(infos))
	for i, info := range infos {
		lines[i] = info.Line()
	}
	return writeLines(folder, baserevFile, lines)
}
