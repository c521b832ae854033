package session

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rcliao/longform-memory/internal/model"
)

// ExportEnvelope is the JSON export shape. Embeddings are always null in
// exports; vectors never leave the process.
type ExportEnvelope struct {
	ExportTimestamp time.Time      `json:"export_timestamp"`
	TotalTurns      int            `json:"total_turns"`
	Memories        []ExportRecord `json:"memories"`
}

// ExportRecord is a memory row with an explicit null embedding field.
type ExportRecord struct {
	model.Memory
	Embedding any `json:"embedding"`
}

// Export writes all active memories as indented JSON.
func (s *Session) Export(ctx context.Context, w io.Writer) error {
	memories, err := s.store.GetAll(ctx, true)
	if err != nil {
		return err
	}

	envelope := ExportEnvelope{
		ExportTimestamp: time.Now(),
		TotalTurns:      s.turnCount,
		Memories:        make([]ExportRecord, len(memories)),
	}
	for i, m := range memories {
		m.Embedding = nil
		envelope.Memories[i] = ExportRecord{Memory: m}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}
