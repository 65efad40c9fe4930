package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:   "members <folder>",
	Short: "List a folder's children, including deleted resources with sync info",
	Args:  cobra.ExactArgs(1),
	RunE:  runMembers,
}

func runMembers(cmd *cobra.Command, args []string) error {
	sync, closeFn, err := openSynchronizer()
	if err != nil {
		return err
	}
	defer closeFn()

	folder, err := resolveFolder(sync.Workspace(), args[0])
	if err != nil {
		return err
	}

	members, err := sync.Members(cmd.Context(), folder)
	if err != nil {
		return err
	}
	for _, m := range members {
		suffix := ""
		if m.Kind().IsContainer() {
			suffix = "/"
		}
		if !m.Exists() {
			suffix += "  (phantom)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", m.Name(), suffix)
	}
	return nil
}
