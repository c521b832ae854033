package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/longform-memory/internal/model"
	"github.com/rcliao/longform-memory/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the 1000+ turn memory walkthrough",
		Long: "Simulate a long conversation: ten preference-setting turns, hundreds of\n" +
			"casual turns, then recall probes showing turn-1 facts surfacing past turn 1000.",
		Run: runDemo,
	}

	cmd.Flags().Int("turns", 1000, "Total casual turns to simulate")

	RootCmd.AddCommand(cmd)
}

var demoOpeners = [][2]string{
	{"My name is Rajesh and I prefer to communicate in Kannada.",
		"Namaste Rajesh! I'll remember your language preference."},
	{"I work at TCS in Bangalore as a software engineer.",
		"Great! I've noted that you work at TCS in Bangalore."},
	{"Please always call me after 11 AM, I'm not available in the mornings.",
		"Understood, I'll remember to only suggest calls after 11 AM."},
	{"I'm allergic to peanuts, so never recommend restaurants that serve them.",
		"Important! I've noted your peanut allergy."},
	{"My mother's birthday is on March 15th.",
		"I've saved that date - March 15th for your mother's birthday."},
	{"I prefer formal communication in work contexts.",
		"Noted - I'll maintain a formal tone for work-related discussions."},
	{"I have a meeting with the client every Friday at 3 PM.",
		"Recorded your recurring Friday 3 PM client meeting."},
	{"I'm training for a marathon, so I need to run every morning.",
		"That's impressive! I've noted your marathon training schedule."},
	{"Never schedule anything on Sundays - that's family time.",
		"Understood, Sundays are reserved for family."},
	{"I'm vegetarian and prefer South Indian cuisine.",
		"Got it - vegetarian with a preference for South Indian food."},
}

// demoCasual messages each fail the extraction pre-filter on purpose.
var demoCasual = []string{
	"How's the weather today?",
	"What's the latest news?",
	"Tell me a joke",
	"What day is it?",
	"How are you?",
	"What can you help me with?",
	"That's interesting",
	"Thanks for the help",
	"Can you explain that again?",
	"I see",
}

func runDemo(cmd *cobra.Command, args []string) {
	totalTurns, _ := cmd.Flags().GetInt("turns")
	ctx := cmd.Context()

	path := dbPath
	if path == "" {
		dir, err := os.MkdirTemp("", "longform-memory-demo-")
		if err != nil {
			exitErr("create demo dir", err)
		}
		path = filepath.Join(dir, "demo.db")
	}

	sess, err := session.New(session.Config{
		DBPath:      path,
		AutoExtract: true,
		Logger:      newLogger(),
	})
	if err != nil {
		exitErr("open session", err)
	}
	defer sess.Close()

	section("PHASE 1: Early Turns - Setting Preferences")
	for _, pair := range demoOpeners {
		fmt.Printf("Turn %d:\n  User: %s\n", sess.CurrentTurn()+1, pair[0])
		result, err := sess.ProcessTurn(ctx, pair[0], pair[1])
		if err != nil {
			exitErr("process turn", err)
		}
		for _, m := range result.Extracted {
			fmt.Printf("    + [%s] %s: %s\n", m.Type, m.Key, m.Value)
		}
	}

	section("PHASE 2: Casual Turns - Noise")
	for sess.CurrentTurn() < totalTurns {
		msg := demoCasual[sess.CurrentTurn()%len(demoCasual)]
		if _, err := sess.ProcessTurn(ctx, msg, "Glad to chat!"); err != nil {
			exitErr("process turn", err)
		}
		if sess.CurrentTurn()%100 == 0 {
			stats, _ := sess.Stats(ctx)
			fmt.Printf("  Turn %d: %d memories stored, avg retrieval %.2fms\n",
				sess.CurrentTurn(), stats.TotalMemories, stats.AvgRetrievalTimeMs)
		}
	}

	section(fmt.Sprintf("PHASE 3: Recall at Turn %d", sess.CurrentTurn()+1))
	probes := []string{
		"What time should we schedule the call, and what language?",
		"What's my name?",
		"What are my dietary restrictions?",
		"When is my mother's birthday?",
		"What about my Friday schedule?",
	}
	for _, query := range probes {
		result, err := sess.ProcessTurn(ctx, query, "")
		if err != nil {
			exitErr("process turn", err)
		}
		fmt.Printf("\nQuery: %q\n", query)
		printDemoMemories(sess, result.Retrieved)
	}

	section("PHASE 4: Statistics")
	stats, err := sess.Stats(ctx)
	if err != nil {
		exitErr("stats", err)
	}
	fmt.Printf("Total turns:        %d\n", stats.CurrentTurn)
	fmt.Printf("Memories stored:    %d\n", stats.TotalMemories)
	fmt.Printf("Average confidence: %.3f\n", stats.AverageConfidence)
	for memType, count := range stats.MemoriesByType {
		fmt.Printf("  - %s: %d\n", memType, count)
	}
	fmt.Printf("Avg extraction:     %.2fms\n", stats.AvgExtractionTimeMs)
	fmt.Printf("Avg retrieval:      %.2fms\n", stats.AvgRetrievalTimeMs)
	fmt.Printf("\nDatabase: %s\n", path)
}

func printDemoMemories(sess *session.Session, memories []model.Memory) {
	if len(memories) == 0 {
		fmt.Println("  (no memories retrieved)")
		return
	}
	for i, m := range memories {
		turnsAgo := sess.CurrentTurn() - m.SourceTurn
		fmt.Printf("  %d. [%s] %s: %s (turn %d, %d turns ago, conf %.2f)\n",
			i+1, m.Type, m.Key, m.Value, m.SourceTurn, turnsAgo, m.Confidence)
	}
}

func section(title string) {
	line := strings.Repeat("=", 72)
	fmt.Printf("\n%s\n  %s\n%s\n\n", line, title, line)
}
