package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
)

// DefaultTopK matches the analysis pipeline default; callers may override
// per call.
const DefaultTopK = 3

// RetrieveUseCase embeds a query and runs top-k search against the
// knowledge store. It holds the loaded embedder and store handle
// explicitly; there is no process-wide singleton.
type RetrieveUseCase struct {
	embedder ports.Embedder
	store    ports.KnowledgeStore
}

func NewRetrieveUseCase(embedder ports.Embedder, store ports.KnowledgeStore) *RetrieveUseCase {
	return &RetrieveUseCase{
		embedder: embedder,
		store:    store,
	}
}

// Retrieve returns up to k contexts ordered as the store returned them;
// ranks are assigned 1-based without re-sorting. An unreachable or empty
// store degrades to an empty result. A failed embedding is fatal: there is
// no query vector to search with.
//
// There is no caching and no deduplication; one retrieval per analysis
// request does not justify either.
func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedContext, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", err)
	}

	hits, err := uc.store.Search(ctx, queryVector, k)
	if err != nil {
		err = domain.WrapError(domain.ErrStoreUnavailable, "search knowledge store", err)
		slog.Warn("knowledge_store_search_failed", "error", err)
		return []domain.RetrievedContext{}, nil
	}

	contexts := make([]domain.RetrievedContext, 0, len(hits))
	for i, hit := range hits {
		contexts = append(contexts, domain.RetrievedContext{
			Rank:   i + 1,
			Source: hit.Source,
			Score:  hit.Score,
			Text:   hit.Text,
		})
	}
	return contexts, nil
}
