package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rcliao/longform-memory/internal/model"
)

// SQLiteStore implements Store using SQLite for durable fields and an
// in-memory side-table for embeddings. Vectors are lost on restart while
// the scalar record survives; semantic scoring silently degrades until
// memories are re-embedded.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// A nil logger disables diagnostics.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		logger:  logger,
		vectors: make(map[string][]float32),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		memory_id          TEXT PRIMARY KEY,
		type               TEXT NOT NULL,
		key                TEXT NOT NULL,
		value              TEXT NOT NULL,
		source_turn        INTEGER NOT NULL,
		confidence         REAL NOT NULL,
		created_at         TEXT NOT NULL,
		last_accessed_turn INTEGER,
		access_count       INTEGER NOT NULL DEFAULT 0,
		metadata           TEXT,
		active             INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_source_turn ON memories(source_turn);
	CREATE INDEX IF NOT EXISTS idx_memories_active ON memories(active);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, m *model.Memory) error {
	var metaJSON *string
	if len(m.Metadata) > 0 {
		b, err := json.Marshal(m.Metadata)
		if err != nil {
			s.logger.Warn("save memory: marshal metadata", zap.String("id", m.ID), zap.Error(err))
			return fmt.Errorf("marshal metadata: %w", err)
		}
		str := string(b)
		metaJSON = &str
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO memories
		 (memory_id, type, key, value, source_turn, confidence,
		  created_at, last_accessed_turn, access_count, metadata, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		m.ID, m.Type, m.Key, m.Value, m.SourceTurn, m.Confidence,
		createdAt.Format(time.RFC3339Nano), m.LastAccessedTurn, m.AccessCount, metaJSON)
	if err != nil {
		s.logger.Warn("save memory", zap.String("id", m.ID), zap.Error(err))
		return fmt.Errorf("insert memory: %w", err)
	}

	if len(m.Embedding) > 0 {
		s.mu.Lock()
		s.vectors[m.ID] = m.Embedding
		s.mu.Unlock()
	}

	return nil
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, mems []*model.Memory) int {
	saved := 0
	for _, m := range mems {
		if err := s.Save(ctx, m); err == nil {
			saved++
		}
	}
	return saved
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT memory_id, type, key, value, source_turn, confidence,
		        created_at, last_accessed_turn, access_count, metadata, active
		 FROM memories
		 WHERE memory_id = ? AND active = 1`, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Warn("get memory", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.attachVector(&m)
	return &m, nil
}

// GetAll reads every record in a single bulk query; rows come back in
// insertion order, which downstream scoring relies on for tie stability.
func (s *SQLiteStore) GetAll(ctx context.Context, activeOnly bool) ([]model.Memory, error) {
	query := `SELECT memory_id, type, key, value, source_turn, confidence,
	                 created_at, last_accessed_turn, access_count, metadata, active
	          FROM memories`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	return s.queryMemories(ctx, query)
}

func (s *SQLiteStore) FindByType(ctx context.Context, memType string) ([]model.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT memory_id, type, key, value, source_turn, confidence,
		        created_at, last_accessed_turn, access_count, metadata, active
		 FROM memories
		 WHERE type = ? AND active = 1`, memType)
}

func (s *SQLiteStore) SearchByKey(ctx context.Context, substr string) ([]model.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT memory_id, type, key, value, source_turn, confidence,
		        created_at, last_accessed_turn, access_count, metadata, active
		 FROM memories
		 WHERE key LIKE ? AND active = 1`, "%"+substr+"%")
}

func (s *SQLiteStore) MarkAccessed(ctx context.Context, id string, turn int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories
		 SET last_accessed_turn = ?, access_count = access_count + 1
		 WHERE memory_id = ?`, turn, id)
	if err != nil {
		s.logger.Warn("mark accessed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("mark accessed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET active = 0 WHERE memory_id = ?`, id)
	if err != nil {
		s.logger.Warn("deactivate memory", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("deactivate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// VectorCount reports how many memories currently have a live embedding.
func (s *SQLiteStore) VectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func (s *SQLiteStore) attachVector(m *model.Memory) {
	s.mu.RLock()
	vec, ok := s.vectors[m.ID]
	s.mu.RUnlock()
	if ok {
		m.Embedding = vec
	}
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...interface{}) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Warn("query memories", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		s.attachVector(&m)
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var createdAt string
	var lastAccessed sql.NullInt64
	var meta sql.NullString
	var active int

	err := row.Scan(
		&m.ID, &m.Type, &m.Key, &m.Value, &m.SourceTurn, &m.Confidence,
		&createdAt, &lastAccessed, &m.AccessCount, &meta, &active,
	)
	if err != nil {
		return m, err
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if lastAccessed.Valid {
		turn := int(lastAccessed.Int64)
		m.LastAccessedTurn = &turn
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &m.Metadata); err != nil {
			m.Metadata = map[string]string{"raw": meta.String}
		}
	}
	m.Active = active == 1

	return m, nil
}
