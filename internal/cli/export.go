package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export active memories as JSON",
		Long: "Write all active memories to a file (or stdout with no argument).\n" +
			"Embeddings are always null in exports. total_turns is the highest\n" +
			"source turn on record.",
		Args: cobra.MaximumNArgs(1),
		Run:  runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.GetAll(cmd.Context(), true)
	if err != nil {
		exitErr("read store", err)
	}

	totalTurns := 0
	records := make([]session.ExportRecord, len(memories))
	for i, m := range memories {
		if m.SourceTurn > totalTurns {
			totalTurns = m.SourceTurn
		}
		m.Embedding = nil
		records[i] = session.ExportRecord{Memory: m}
	}

	envelope := session.ExportEnvelope{
		ExportTimestamp: time.Now(),
		TotalTurns:      totalTurns,
		Memories:        records,
	}

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			exitErr("create export file", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		exitErr("export", err)
	}
	if len(args) == 1 {
		fmt.Printf("exported %d memories to %s\n", len(records), args[0])
	}
}
