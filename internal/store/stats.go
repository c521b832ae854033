package store

import (
	"context"
	"math"
)

// Stats holds aggregate counts over active memories.
type Stats struct {
	TotalMemories     int            `json:"total_memories"`
	ByType            map[string]int `json:"by_type"`
	AverageConfidence float64        `json:"average_confidence"`
	VectorStoreSize   int            `json:"vector_store_size"`
}

// Stats returns store-level statistics. Deactivated records are excluded.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByType: map[string]int{}}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE active = 1`).Scan(&st.TotalMemories); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM memories WHERE active = 1 GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var memType string
		var count int
		if err := rows.Scan(&memType, &count); err != nil {
			return nil, err
		}
		st.ByType[memType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg float64
	s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(confidence), 0) FROM memories WHERE active = 1`).Scan(&avg)
	st.AverageConfidence = math.Round(avg*1000) / 1000

	st.VectorStoreSize = s.VectorCount()

	return st, nil
}
