package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage per-folder ignore patterns",
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <folder> <pattern>",
	Short: "Append a pattern to a folder's ignore list",
	Args:  cobra.ExactArgs(2),
	RunE:  runIgnoreAdd,
}

func init() {
	ignoreCmd.AddCommand(ignoreAddCmd)
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	sync, closeFn, err := openSynchronizer()
	if err != nil {
		return err
	}
	defer closeFn()

	folder, err := resolveFolder(sync.Workspace(), args[0])
	if err != nil {
		return err
	}
	if err := sync.AddIgnored(cmd.Context(), folder, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %q to %s\n", args[1], folder.Path())
	return nil
}
