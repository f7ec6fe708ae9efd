package sqlitevec

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIndexAndSearchRanksByCosine(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.IndexChunks(ctx,
		[]domain.KnowledgeChunk{
			{ID: "dust", Text: "Dust lowers panel output.", Source: "dust.txt", ChunkIndex: 0},
			{ID: "snow", Text: "Snow cover blocks light.", Source: "snow.txt", ChunkIndex: 0},
			{ID: "bird", Text: "Bird droppings create hotspots.", Source: "bird.txt", ChunkIndex: 0},
		},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		},
	)
	if err != nil {
		t.Fatalf("IndexChunks: %v", err)
	}

	hits, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != "dust" || hits[1].ChunkID != "bird" {
		t.Fatalf("unexpected ranking: %s, %s", hits[0].ChunkID, hits[1].ChunkID)
	}
	if hits[0].Score < hits[1].Score {
		t.Fatalf("scores not descending: %f < %f", hits[0].Score, hits[1].Score)
	}
	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Fatalf("expected identical vector to score 1.0, got %f", hits[0].Score)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	store := openTestStore(t)

	hits, err := store.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestIndexChunksUpsertsByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	chunk := domain.KnowledgeChunk{ID: "c1", Text: "old", Source: "a.txt", ChunkIndex: 0}
	if err := store.IndexChunks(ctx, []domain.KnowledgeChunk{chunk}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("first index: %v", err)
	}
	chunk.Text = "new"
	if err := store.IndexChunks(ctx, []domain.KnowledgeChunk{chunk}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("second index: %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 chunk after upsert, got %d", n)
	}

	hits, err := store.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Text != "new" {
		t.Fatalf("expected updated text, got %q", hits[0].Text)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.75}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("component %d mismatch: %f vs %f", i, in[i], out[i])
		}
	}

	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}
