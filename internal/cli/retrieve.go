package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/embedding"
	"github.com/rcliao/longform-memory/internal/retrieve"
	"github.com/rcliao/longform-memory/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Score and rank memories against a query",
		Long: "Run the relevance scorer over the stored memories and print the top\n" +
			"results. Marks every hit as accessed, exactly like an in-conversation turn.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRetrieve,
	}

	cmd.Flags().IntP("turn", "n", 0, "Current turn index (0 = highest stored source turn)")
	cmd.Flags().StringSliceP("type", "t", nil, "Filter by memory type (repeatable)")
	cmd.Flags().Float64P("min-confidence", "c", session.DefaultMinConfidence, "Confidence floor")
	cmd.Flags().IntP("limit", "l", retrieve.DefaultMaxResults, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRetrieve(cmd *cobra.Command, args []string) {
	turn, _ := cmd.Flags().GetInt("turn")
	types, _ := cmd.Flags().GetStringSlice("type")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if turn <= 0 {
		// Without a session the best stand-in for "now" is the newest turn.
		memories, err := s.GetAll(cmd.Context(), true)
		if err != nil {
			exitErr("read store", err)
		}
		for _, m := range memories {
			if m.SourceTurn > turn {
				turn = m.SourceTurn
			}
		}
	}

	r := retrieve.New(s, embedding.NewFromEnv(), limit, newLogger())
	results, err := r.Retrieve(cmd.Context(), query, turn, retrieve.Options{
		Types:         types,
		MinConfidence: minConfidence,
	})
	if err != nil {
		exitErr("retrieve", err)
	}

	if formatFlag == "text" {
		fmt.Println(session.FormatForPrompt(results, session.StyleStructured))
		return
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
