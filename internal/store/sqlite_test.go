package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/longform-memory/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMemory(id string) *model.Memory {
	return &model.Memory{
		ID:         id,
		Type:       model.TypePreference,
		Key:        "language_preference",
		Value:      "kannada",
		SourceTurn: 1,
		Confidence: 0.85,
		CreatedAt:  time.Now().UTC(),
		Metadata:   map[string]string{"source": "pattern"},
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := testMemory("mem_1")
	if err := s.Save(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "mem_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Type != m.Type || got.Key != m.Key || got.Value != m.Value {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.SourceTurn != 1 || got.Confidence != 0.85 {
		t.Errorf("provenance mismatch: turn %d conf %v", got.SourceTurn, got.Confidence)
	}
	if got.Metadata["source"] != "pattern" {
		t.Errorf("metadata mismatch: %v", got.Metadata)
	}
	if !got.Active {
		t.Error("expected active record")
	}
	if got.LastAccessedTurn != nil {
		t.Errorf("expected nil last_accessed_turn, got %d", *got.LastAccessedTurn)
	}
	if !got.CreatedAt.Equal(m.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, m.CreatedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveOverwriteReactivates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m := testMemory("mem_1")
	s.Save(ctx, m)
	if err := s.Deactivate(ctx, "mem_1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := s.Get(ctx, "mem_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deactivated record hidden, got %v", err)
	}

	m.Value = "hindi"
	if err := s.Save(ctx, m); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err := s.Get(ctx, "mem_1")
	if err != nil {
		t.Fatalf("get after resave: %v", err)
	}
	if got.Value != "hindi" || !got.Active {
		t.Errorf("expected reactivated record with new value, got %+v", got)
	}
}

func TestDeactivateKeepsRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Save(ctx, testMemory("mem_1"))
	s.Deactivate(ctx, "mem_1")

	active, err := s.GetAll(ctx, true)
	if err != nil {
		t.Fatalf("get all active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected 0 active, got %d", len(active))
	}

	all, err := s.GetAll(ctx, false)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected row to survive deactivation, got %d rows", len(all))
	}
	if all[0].Active {
		t.Error("expected inactive flag")
	}
}

func TestMarkAccessed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Save(ctx, testMemory("mem_1"))
	if err := s.MarkAccessed(ctx, "mem_1", 42); err != nil {
		t.Fatalf("mark accessed: %v", err)
	}
	s.MarkAccessed(ctx, "mem_1", 50)

	got, _ := s.Get(ctx, "mem_1")
	if got.AccessCount != 2 {
		t.Errorf("expected access_count 2, got %d", got.AccessCount)
	}
	if got.LastAccessedTurn == nil || *got.LastAccessedTurn != 50 {
		t.Errorf("expected last_accessed_turn 50, got %v", got.LastAccessedTurn)
	}
}

func TestFindByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pref := testMemory("mem_1")
	fact := testMemory("mem_2")
	fact.Type = model.TypeFact
	fact.Key = "user_name"
	fact.Value = "rajesh"
	s.Save(ctx, pref)
	s.Save(ctx, fact)

	facts, err := s.FindByType(ctx, model.TypeFact)
	if err != nil {
		t.Fatalf("find by type: %v", err)
	}
	if len(facts) != 1 || facts[0].ID != "mem_2" {
		t.Errorf("expected only mem_2, got %v", facts)
	}
}

func TestSearchByKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Save(ctx, testMemory("mem_1"))
	other := testMemory("mem_2")
	other.Key = "commitment_0"
	s.Save(ctx, other)

	got, err := s.SearchByKey(ctx, "language")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "mem_1" {
		t.Errorf("expected mem_1 only, got %v", got)
	}
}

func TestGetAllInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ids := []string{"mem_c", "mem_a", "mem_b"}
	for i, id := range ids {
		m := testMemory(id)
		m.SourceTurn = i + 1
		s.Save(ctx, m)
	}

	all, err := s.GetAll(ctx, true)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
	for i, id := range ids {
		if all[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, all[i].ID)
		}
	}
}

func TestSaveBatchCountsSuccesses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved := s.SaveBatch(ctx, []*model.Memory{testMemory("mem_1"), testMemory("mem_2")})
	if saved != 2 {
		t.Errorf("expected 2 saved, got %d", saved)
	}
}

func TestVectorsAreVolatile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	m := testMemory("mem_1")
	m.Embedding = []float32{0.1, 0.2, 0.3}
	s.Save(ctx, m)

	if s.VectorCount() != 1 {
		t.Fatalf("expected 1 vector, got %d", s.VectorCount())
	}
	got, _ := s.Get(ctx, "mem_1")
	if len(got.Embedding) != 3 {
		t.Errorf("expected embedding attached, got %v", got.Embedding)
	}
	s.Close()

	reopened, err := NewSQLiteStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	got, err = reopened.Get(ctx, "mem_1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Value != "kannada" {
		t.Errorf("scalar record lost across restart: %+v", got)
	}
	if got.Embedding != nil {
		t.Errorf("expected embedding gone after restart, got %v", got.Embedding)
	}
	if reopened.VectorCount() != 0 {
		t.Errorf("expected empty vector table, got %d", reopened.VectorCount())
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	pref := testMemory("mem_1") // 0.85
	fact := testMemory("mem_2")
	fact.Type = model.TypeFact
	fact.Confidence = 0.8
	inactive := testMemory("mem_3")
	s.Save(ctx, pref)
	s.Save(ctx, fact)
	s.Save(ctx, inactive)
	s.Deactivate(ctx, "mem_3")

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMemories != 2 {
		t.Errorf("expected 2 active, got %d", stats.TotalMemories)
	}
	if stats.ByType[model.TypePreference] != 1 || stats.ByType[model.TypeFact] != 1 {
		t.Errorf("by-type mismatch: %v", stats.ByType)
	}
	if stats.AverageConfidence != 0.825 {
		t.Errorf("expected avg 0.825, got %v", stats.AverageConfidence)
	}
}
