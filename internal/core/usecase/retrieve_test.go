package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

type embedderFake struct {
	lastQuery string
	err       error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.lastQuery = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type storeFake struct {
	hits  []domain.KnowledgeChunkHit
	err   error
	lastK int
}

func (f *storeFake) IndexChunks(context.Context, []domain.KnowledgeChunk, [][]float32) error {
	return nil
}

func (f *storeFake) Search(_ context.Context, _ []float32, k int) ([]domain.KnowledgeChunkHit, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.hits) {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

func (f *storeFake) Count(context.Context) (int, error) {
	return len(f.hits), nil
}

func TestRetrievePreservesStoreOrder(t *testing.T) {
	store := &storeFake{hits: []domain.KnowledgeChunkHit{
		{ChunkID: "a", Text: "first", Source: "kb.txt", Score: 0.9},
		{ChunkID: "b", Text: "second", Source: "kb.txt", Score: 0.8},
		{ChunkID: "c", Text: "third", Source: "sop.txt", Score: 0.7},
	}}
	uc := NewRetrieveUseCase(&embedderFake{}, store)

	contexts, err := uc.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(contexts) != 3 {
		t.Fatalf("expected 3 contexts, got %d", len(contexts))
	}
	for i, c := range contexts {
		if c.Rank != i+1 {
			t.Fatalf("context %d rank = %d, want %d", i, c.Rank, i+1)
		}
	}
	if contexts[0].Text != "first" || contexts[2].Text != "third" {
		t.Fatalf("store order not preserved: %+v", contexts)
	}
}

func TestRetrieveDefaultsK(t *testing.T) {
	store := &storeFake{}
	uc := NewRetrieveUseCase(&embedderFake{}, store)

	if _, err := uc.Retrieve(context.Background(), "q", 0); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if store.lastK != DefaultTopK {
		t.Fatalf("expected default k=%d, got %d", DefaultTopK, store.lastK)
	}
}

func TestRetrieveEmptyStoreReturnsEmptyNotError(t *testing.T) {
	uc := NewRetrieveUseCase(&embedderFake{}, &storeFake{})

	contexts, err := uc.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(contexts) != 0 {
		t.Fatalf("expected no contexts, got %d", len(contexts))
	}
}

func TestRetrieveStoreFailureDegradesToEmpty(t *testing.T) {
	store := &storeFake{err: errors.New("connection refused")}
	uc := NewRetrieveUseCase(&embedderFake{}, store)

	contexts, err := uc.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("store failure must not fail retrieval, got %v", err)
	}
	if contexts == nil || len(contexts) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", contexts)
	}
}

func TestRetrieveEmbedFailureIsFatal(t *testing.T) {
	uc := NewRetrieveUseCase(&embedderFake{err: errors.New("model not loaded")}, &storeFake{})

	_, err := uc.Retrieve(context.Background(), "q", 3)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestRetrieveKLargerThanStoreNeverPads(t *testing.T) {
	store := &storeFake{hits: []domain.KnowledgeChunkHit{
		{ChunkID: "a", Text: "one", Source: "kb.txt", Score: 0.9},
		{ChunkID: "b", Text: "two", Source: "kb.txt", Score: 0.8},
	}}
	uc := NewRetrieveUseCase(&embedderFake{}, store)

	contexts, err := uc.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(contexts) != 2 {
		t.Fatalf("expected at most 2 results, got %d", len(contexts))
	}
}
