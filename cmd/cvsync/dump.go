package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/cvsync/internal/syncfile"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <folder>",
	Short: "Print a folder's decoded control data",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	sync, closeFn, err := openSynchronizer()
	if err != nil {
		return err
	}
	defer closeFn()

	folder, err := resolveFolder(sync.Workspace(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	fs, err := sync.FolderSync(ctx, folder)
	if err != nil {
		return err
	}
	if fs == nil {
		fmt.Fprintf(out, "%s: not a managed folder\n", folder.Path())
	} else {
		fmt.Fprintf(out, "root:       %s\n", fs.Root)
		fmt.Fprintf(out, "repository: %s\n", fs.Repository)
		fmt.Fprintf(out, "tag:        %s\n", fs.Tag)
		fmt.Fprintf(out, "static:     %v\n", fs.Static)
	}

	members, err := sync.Members(ctx, folder)
	if err != nil {
		return err
	}
	for _, m := range members {
		syncBytes, err := sync.SyncBytes(ctx, m)
		if err != nil {
			return err
		}
		if syncBytes != nil {
			fmt.Fprintf(out, "entry:      %s\n", syncBytes)
		}
	}

	patterns, err := syncfile.ReadCVSIgnore(folder)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		fmt.Fprintf(out, "ignore:     %s\n", p)
	}
	return nil
}
