package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session with live extraction and recall",
		Long: "Read turns from stdin. Each turn shows what was recalled for it and what\n" +
			"was extracted from it. Commands: /stats, /context, /reset, /quit.",
		Run: runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	sess, err := openSession()
	if err != nil {
		exitErr("open session", err)
	}
	defer sess.Close()

	ctx := cmd.Context()
	fmt.Println("longform-memory chat. /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := chatCommand(cmd, sess, line); quit {
				break
			}
			continue
		}

		result, err := sess.ProcessTurn(ctx, line, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		if len(result.Retrieved) > 0 {
			fmt.Println(session.FormatForPrompt(result.Retrieved, session.StyleNatural))
		}
		for _, m := range result.Extracted {
			fmt.Printf("  + remembered [%s] %s: %s\n", m.Type, m.Key, m.Value)
		}
	}
}

func chatCommand(cmd *cobra.Command, sess *session.Session, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/reset":
		sess.Reset()
		fmt.Println("session reset (database untouched)")
	case "/stats":
		stats, err := sess.Stats(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("turn %d, %d memories (avg conf %.3f), %d extractions, %d retrievals\n",
			stats.CurrentTurn, stats.TotalMemories, stats.AverageConfidence,
			stats.TotalExtractions, stats.TotalRetrievals)
	case "/context":
		recent, err := sess.Retriever().GetRecent(cmd.Context(), sess.CurrentTurn(), 50)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Println(session.FormatForPrompt(recent, session.StyleStructured))
	default:
		fmt.Println("commands: /stats /context /reset /quit")
	}
	return false
}
