package main

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/bamsammich/cvsync/internal/syncfile"
	"github.com/bamsammich/cvsync/internal/workspace"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <out.tar.zst>",
	Short: "Export all control metadata as a zstd-compressed tar archive",
	Long: "Snapshot collects every control directory and ignore file under the\n" +
		"workspace into a compressed archive, a cheap backup of the sync\n" +
		"metadata without the working files.",
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ws, err := workspace.New(flagWorkspace)
	if err != nil {
		return err
	}

	out, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	count := 0
	err = filepath.WalkDir(ws.RootDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == workspace.SidecarDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(ws.RootDir(), path)
		if err != nil {
			return err
		}
		if !isMetadataFile(rel) {
			return nil
		}
		if err := addToTar(tw, path, rel); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finish tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zstd: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "archived %d metadata files to %s\n", count, args[0])
	return nil
}

// isMetadataFile reports whether the workspace-relative path is part of the
// sync metadata: anything under a CVS directory, or an ignore file.
func isMetadataFile(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, p := range parts[:len(parts)-1] {
		if p == workspace.MetaDir {
			return true
		}
	}
	return parts[len(parts)-1] == syncfile.IgnoreFile
}

func addToTar(tw *tar.Writer, path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
