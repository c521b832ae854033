package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored memories",
		Long:  "List memories, optionally filtered by type or key substring.",
		Run:   runList,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by memory type")
	cmd.Flags().StringP("key", "k", "", "Filter by key substring")
	cmd.Flags().Bool("all", false, "Include deactivated memories")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	keySubstr, _ := cmd.Flags().GetString("key")
	includeInactive, _ := cmd.Flags().GetBool("all")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var memories []model.Memory
	switch {
	case memType != "":
		memories, err = s.FindByType(cmd.Context(), memType)
	case keySubstr != "":
		memories, err = s.SearchByKey(cmd.Context(), keySubstr)
	default:
		memories, err = s.GetAll(cmd.Context(), !includeInactive)
	}
	if err != nil {
		exitErr("list", err)
	}

	if formatFlag == "text" {
		for _, m := range memories {
			fmt.Printf("[%s] %s: %s (turn %d, conf %.2f, accessed %d)\n",
				m.Type, m.Key, m.Value, m.SourceTurn, m.Confidence, m.AccessCount)
		}
		return
	}

	if len(memories) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(memories, "", "  ")
	fmt.Println(string(b))
}
