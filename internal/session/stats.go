package session

import (
	"context"
	"math"
)

// Stats combines store-level aggregates with session-level counters.
type Stats struct {
	CurrentTurn               int            `json:"current_turn"`
	TotalMemories             int            `json:"total_memories"`
	MemoriesByType            map[string]int `json:"memories_by_type"`
	AverageConfidence         float64        `json:"average_confidence"`
	VectorStoreSize           int            `json:"vector_store_size"`
	TotalExtractions          int            `json:"total_extractions"`
	TotalRetrievals           int            `json:"total_retrievals"`
	AvgExtractionTimeMs       float64        `json:"avg_extraction_time_ms"`
	AvgRetrievalTimeMs        float64        `json:"avg_retrieval_time_ms"`
	ConversationHistoryLength int            `json:"conversation_history_length"`
}

// Stats returns the combined statistics snapshot.
func (s *Session) Stats(ctx context.Context) (*Stats, error) {
	storeStats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		CurrentTurn:               s.turnCount,
		TotalMemories:             storeStats.TotalMemories,
		MemoriesByType:            storeStats.ByType,
		AverageConfidence:         storeStats.AverageConfidence,
		VectorStoreSize:           storeStats.VectorStoreSize,
		TotalExtractions:          s.totalExtracted,
		TotalRetrievals:           s.totalRetrieved,
		AvgExtractionTimeMs:       roundMs(mean(s.extractionTimes)),
		AvgRetrievalTimeMs:        roundMs(mean(s.retrievalTimes)),
		ConversationHistoryLength: len(s.history),
	}, nil
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

func roundMs(v float64) float64 {
	return math.Round(v*100) / 100
}
