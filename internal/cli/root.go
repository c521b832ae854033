// Package cli implements the longform-memory CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rcliao/longform-memory/internal/embedding"
	"github.com/rcliao/longform-memory/internal/llm"
	"github.com/rcliao/longform-memory/internal/session"
	"github.com/rcliao/longform-memory/internal/store"
)

var (
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "longform-memory",
	Short: "Durable conversational memory for AI agents",
	Long: "Extracts salient facts from dialogue turns, persists them with provenance,\n" +
		"and retrieves the relevant few for any new turn. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $LONGFORM_MEMORY_DB or ~/.longform-memory/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("LONGFORM_MEMORY_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".longform-memory", "memory.db")
}

// newLogger builds the CLI logger. Quiet by default so diagnostics don't
// mix with command output; LONGFORM_MEMORY_LOG_LEVEL overrides.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	level := zapcore.WarnLevel
	if env := os.Getenv("LONGFORM_MEMORY_LOG_LEVEL"); env != "" {
		if parsed, err := zapcore.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath(), newLogger())
}

// openSession wires the collaborators from the environment. Both are
// optional; the system runs fully deterministic without them.
func openSession() (*session.Session, error) {
	return session.New(session.Config{
		DBPath:      getDBPath(),
		Completer:   llm.NewFromEnv(),
		Embedder:    embedding.NewFromEnv(),
		AutoExtract: true,
		UseModel:    os.Getenv("LONGFORM_MEMORY_MODEL_PROVIDER") != "",
		Logger:      newLogger(),
	})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
