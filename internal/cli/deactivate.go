package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "deactivate [memory-id]",
		Short: "Soft-delete a memory",
		Long:  "Mark a memory inactive. The row stays in the database but is excluded from reads and retrieval.",
		Args:  cobra.ExactArgs(1),
		Run:   runDeactivate,
	}

	RootCmd.AddCommand(cmd)
}

func runDeactivate(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Deactivate(cmd.Context(), args[0]); err != nil {
		exitErr("deactivate", err)
	}
	fmt.Printf("deactivated %s\n", args[0])
}
