package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/model"
	"github.com/rcliao/longform-memory/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import memories from an export file",
		Long: "Read an export envelope from a file (or stdin with no argument) and save\n" +
			"every memory it contains. Existing ids are overwritten and reactivated.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open import file", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		exitErr("read import", err)
	}

	var envelope session.ExportEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories := make([]*model.Memory, len(envelope.Memories))
	for i := range envelope.Memories {
		memories[i] = &envelope.Memories[i].Memory
	}

	imported := s.SaveBatch(cmd.Context(), memories)
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
