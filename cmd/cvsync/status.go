package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/cvsync/internal/synchronizer"
	"github.com/bamsammich/cvsync/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show sync state for a workspace subtree",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var statusStats bool

func init() {
	statusCmd.Flags().BoolVar(&statusStats, "stats", false, "print synchronizer counters")
}

func runStatus(cmd *cobra.Command, args []string) error {
	sync, closeFn, err := openSynchronizer()
	if err != nil {
		return err
	}
	defer closeFn()

	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	root, err := resolveFolder(sync.Workspace(), target)
	if err != nil {
		return err
	}

	err = sync.Workspace().Walk(root, workspace.DepthInfinite, func(r workspace.Resource) (bool, error) {
		if ignored, _ := sync.IsIgnored(r); ignored {
			return false, nil
		}
		line, err := formatStatus(cmd, sync, r)
		if err != nil {
			return false, err
		}
		if line != "" {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	if statusStats {
		fmt.Fprintln(cmd.OutOrStdout(), sync.Stats())
	}
	return nil
}

func formatStatus(cmd *cobra.Command, sync *synchronizer.Synchronizer, r workspace.Resource) (string, error) {
	ctx := cmd.Context()
	switch r.Kind() {
	case workspace.KindRoot:
		return "", nil
	case workspace.KindFile:
		rs, err := sync.ResourceSync(ctx, r)
		if err != nil {
			return "", err
		}
		if rs == nil {
			return fmt.Sprintf("?  %s", r.Path()), nil
		}
		mark := " "
		switch {
		case rs.IsAddition():
			mark = "A"
		case rs.IsDeletion():
			mark = "D"
		case sync.ModificationState(r) == synchronizer.StateDirty:
			mark = "M"
		}
		return fmt.Sprintf("%s  %s  %s", mark, r.Path(), rs.Revision), nil
	default:
		fs, err := sync.FolderSync(ctx, r)
		if err != nil {
			return "", err
		}
		if fs == nil {
			return fmt.Sprintf("?  %s/", r.Path()), nil
		}
		return fmt.Sprintf("   %s/  [%s %s]", r.Path(), fs.Repository, fs.Tag), nil
	}
}
