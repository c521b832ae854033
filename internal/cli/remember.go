package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [value]",
		Short: "Store a memory directly, bypassing extraction",
		Long:  "Store a memory directly. Value can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("type", "t", model.TypeFact, "Memory type: "+strings.Join(model.AllTypes(), ", "))
	cmd.Flags().StringP("key", "k", "", "Key (required)")
	cmd.Flags().Int("turn", 0, "Source turn to attribute the memory to")
	cmd.Flags().Float64P("confidence", "c", 1.0, "Confidence in [0,1]")

	cmd.MarkFlagRequired("key")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	memType, _ := cmd.Flags().GetString("type")
	key, _ := cmd.Flags().GetString("key")
	turn, _ := cmd.Flags().GetInt("turn")
	confidence, _ := cmd.Flags().GetFloat64("confidence")

	if !model.ValidTypes[memType] {
		exitErr("remember", fmt.Errorf("invalid type %q, expected one of: %s", memType, strings.Join(model.AllTypes(), ", ")))
	}
	if confidence < 0 || confidence > 1 {
		exitErr("remember", fmt.Errorf("confidence %v out of range [0,1]", confidence))
	}

	// Value: positional arg first, then stdin.
	var value string
	if len(args) > 0 {
		value = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			value = string(b)
		}
	}
	if strings.TrimSpace(value) == "" {
		exitErr("remember", fmt.Errorf("value is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	m := &model.Memory{
		ID:         ulid.Make().String(),
		Type:       memType,
		Key:        key,
		Value:      strings.TrimSpace(value),
		SourceTurn: turn,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
		Metadata:   map[string]string{"source": "manual"},
	}
	if err := s.Save(cmd.Context(), m); err != nil {
		exitErr("save", err)
	}

	b, _ := json.MarshalIndent(m, "", "  ")
	fmt.Println(string(b))
}
