package retrieve

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/longform-memory/internal/embedding"
	"github.com/rcliao/longform-memory/internal/model"
	"github.com/rcliao/longform-memory/internal/store"
)

type fakeEmbedder struct {
	vec embedding.Vector
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	return f.vec, nil
}

func (f fakeEmbedder) Dims() int { return len(f.vec) }

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func saveMemory(t *testing.T, s *store.SQLiteStore, m model.Memory) {
	t.Helper()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := s.Save(context.Background(), &m); err != nil {
		t.Fatalf("save %s: %v", m.ID, err)
	}
}

func TestRecencyScore(t *testing.T) {
	if got := recencyScore(100, 100); got != 1 {
		t.Errorf("zero turns ago: expected 1, got %v", got)
	}
	if got := recencyScore(0, 100); math.Abs(got-0.5) > 0.01 {
		t.Errorf("one half-life ago: expected ~0.5, got %v", got)
	}
	if got := recencyScore(0, 1000); got <= 0 {
		t.Errorf("ancient memory: expected positive score, got %v", got)
	}
	prev := 2.0
	for _, turnsAgo := range []int{0, 10, 100, 500, 1000} {
		got := recencyScore(0, turnsAgo)
		if got >= prev {
			t.Errorf("recency not strictly decreasing at %d turns: %v >= %v", turnsAgo, got, prev)
		}
		prev = got
	}
}

func TestFrequencyScore(t *testing.T) {
	if got := frequencyScore(0); got != frequencyBaseline {
		t.Errorf("never accessed: expected baseline %v, got %v", frequencyBaseline, got)
	}
	if got := frequencyScore(20); math.Abs(got-1) > 1e-9 {
		t.Errorf("at saturation: expected 1, got %v", got)
	}
	if got := frequencyScore(1000); got > 1 {
		t.Errorf("beyond saturation: expected cap at 1, got %v", got)
	}
	if frequencyScore(1) >= frequencyScore(5) {
		t.Error("frequency should grow with access count")
	}
}

func TestCombineRenormalizes(t *testing.T) {
	if got := combine([]float64{1, 0}, []float64{0.3, 0.7}); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected 0.3, got %v", got)
	}
	if got := combine([]float64{1, 1, 1}, []float64{0.3, 0.15, 0.1}); math.Abs(got-1) > 1e-9 {
		t.Errorf("all-ones should renormalize to 1, got %v", got)
	}
	if got := combine(nil, nil); got != 0 {
		t.Errorf("empty inputs: expected 0, got %v", got)
	}
}

func TestKeywordScoreJaccard(t *testing.T) {
	m := &model.Memory{Key: "language_preference", Value: "kannada"}
	// "kannada" overlaps; stopwords and punctuation are stripped.
	got := keywordScore(tokenize("do you remember kannada?"), m)
	if got <= 0 {
		t.Errorf("expected positive overlap, got %v", got)
	}
	if zero := keywordScore(tokenize("completely unrelated topic"), m); zero != 0 {
		t.Errorf("expected 0 without overlap, got %v", zero)
	}
	if zero := keywordScore(tokenize("the of and"), m); zero != 0 {
		t.Errorf("stopword-only query: expected 0, got %v", zero)
	}
}

func TestSemanticScore(t *testing.T) {
	if got := semanticScore(embedding.Vector{1, 0}, embedding.Vector{1, 0}); math.Abs(got-1) > 1e-6 {
		t.Errorf("aligned vectors: expected 1, got %v", got)
	}
	if got := semanticScore(embedding.Vector{1, 0}, embedding.Vector{0, 1}); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("orthogonal vectors: expected 0.5, got %v", got)
	}
	if got := semanticScore(embedding.Vector{1, 0}, embedding.Vector{0, 0}); got != 0 {
		t.Errorf("zero memory vector: expected 0, got %v", got)
	}
	if got := semanticScore(embedding.Vector{0, 0}, embedding.Vector{1, 0}); got != 0 {
		t.Errorf("zero query vector: expected 0, got %v", got)
	}
	if got := semanticScore(embedding.Vector{1, 0}, embedding.Vector{1, 0, 0}); got != 0 {
		t.Errorf("length mismatch: expected 0, got %v", got)
	}
}

func TestRetrieveTypeFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 0, nil)

	saveMemory(t, s, model.Memory{ID: "p1", Type: model.TypePreference, Key: "language_preference", Value: "kannada", SourceTurn: 1, Confidence: 0.85})
	saveMemory(t, s, model.Memory{ID: "f1", Type: model.TypeFact, Key: "user_name", Value: "rajesh", SourceTurn: 1, Confidence: 0.8})

	got, err := r.Retrieve(ctx, "kannada rajesh", 10, Options{Types: []string{model.TypeFact}})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "f1" {
		t.Errorf("expected only f1, got %v", got)
	}
}

func TestRetrieveConfidenceFloor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 0, nil)

	saveMemory(t, s, model.Memory{ID: "hi", Type: model.TypeFact, Key: "user_name", Value: "rajesh", SourceTurn: 1, Confidence: 0.9})
	saveMemory(t, s, model.Memory{ID: "lo", Type: model.TypeFact, Key: "user_guess", Value: "rajesh maybe", SourceTurn: 1, Confidence: 0.3})

	got, err := r.Retrieve(ctx, "rajesh", 10, Options{MinConfidence: 0.5})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "hi" {
		t.Errorf("expected only the high-confidence memory, got %v", got)
	}
}

func TestRetrieveCapsResults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 3, nil)

	for i := 0; i < 10; i++ {
		saveMemory(t, s, model.Memory{
			ID: string(rune('a' + i)), Type: model.TypeFact,
			Key: "user_city", Value: "bangalore", SourceTurn: i + 1, Confidence: 0.8,
		})
	}

	got, err := r.Retrieve(ctx, "bangalore", 20, Options{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 results, got %d", len(got))
	}
}

func TestRetrieveMarksAccessed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 0, nil)

	saveMemory(t, s, model.Memory{ID: "m1", Type: model.TypeFact, Key: "user_name", Value: "rajesh", SourceTurn: 1, Confidence: 0.8})

	got, err := r.Retrieve(ctx, "rajesh", 42, Options{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}

	stored, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.AccessCount != 1 {
		t.Errorf("expected access_count 1, got %d", stored.AccessCount)
	}
	if stored.LastAccessedTurn == nil || *stored.LastAccessedTurn != 42 {
		t.Errorf("expected last_accessed_turn 42, got %v", stored.LastAccessedTurn)
	}
}

func TestRetrieveTieStability(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 0, nil)

	// Identical scoring inputs: ties keep insertion order.
	for _, id := range []string{"first", "second", "third"} {
		saveMemory(t, s, model.Memory{ID: id, Type: model.TypeFact, Key: "user_city", Value: "bangalore", SourceTurn: 5, Confidence: 0.8})
	}

	got, err := r.Retrieve(ctx, "bangalore", 10, Options{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestRetrieveSemanticFactor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, fakeEmbedder{vec: embedding.Vector{1, 0}}, 0, nil)

	// No keyword overlap with the query; the embedding decides the order.
	aligned := model.Memory{ID: "aligned", Type: model.TypeFact, Key: "a", Value: "zzz", SourceTurn: 1, Confidence: 0.8, Embedding: []float32{1, 0}}
	opposed := model.Memory{ID: "opposed", Type: model.TypeFact, Key: "b", Value: "yyy", SourceTurn: 1, Confidence: 0.8, Embedding: []float32{-1, 0}}
	saveMemory(t, s, opposed)
	saveMemory(t, s, aligned)

	got, err := r.Retrieve(ctx, "qqq", 1, Options{})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) == 0 || got[0].ID != "aligned" {
		t.Errorf("expected the aligned embedding first, got %v", got)
	}
}

func TestGetByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 0, nil)

	saveMemory(t, s, model.Memory{ID: "old", Type: model.TypePreference, Key: "k1", Value: "v1", SourceTurn: 1, Confidence: 0.8})
	saveMemory(t, s, model.Memory{ID: "new", Type: model.TypePreference, Key: "k2", Value: "v2", SourceTurn: 90, Confidence: 0.8})
	saveMemory(t, s, model.Memory{ID: "fact", Type: model.TypeFact, Key: "k3", Value: "v3", SourceTurn: 95, Confidence: 0.8})

	got, err := r.GetByType(ctx, model.TypePreference, 100, 10)
	if err != nil {
		t.Fatalf("get by type: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 preferences, got %d", len(got))
	}
	if got[0].ID != "new" {
		t.Errorf("expected the recent one first, got %s", got[0].ID)
	}
}

func TestGetRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s, nil, 10, nil)

	saveMemory(t, s, model.Memory{ID: "ancient", Type: model.TypeFact, Key: "k1", Value: "v1", SourceTurn: 1, Confidence: 0.8})
	saveMemory(t, s, model.Memory{ID: "recent", Type: model.TypeFact, Key: "k2", Value: "v2", SourceTurn: 95, Confidence: 0.8})
	saveMemory(t, s, model.Memory{ID: "newest", Type: model.TypeFact, Key: "k3", Value: "v3", SourceTurn: 99, Confidence: 0.8})

	got, err := r.GetRecent(ctx, 100, 10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 within the window, got %d", len(got))
	}
	if got[0].ID != "newest" || got[1].ID != "recent" {
		t.Errorf("expected newest first, got %v", got)
	}
}
