package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/core/ports"
)

// FileExtractor turns one knowledge file into plain text.
type FileExtractor interface {
	Extract(path string) (string, error)
	Supports(path string) bool
}

// KnowledgeIngestUseCase loads knowledge documents into the vector store:
// extract text, chunk, embed, index. Chunk ids are derived from source and
// chunk index, so re-running against the same directory upserts in place
// instead of accumulating duplicates.
type KnowledgeIngestUseCase struct {
	chunker    ports.Chunker
	embedder   ports.Embedder
	store      ports.KnowledgeStore
	extractors []FileExtractor
}

func NewKnowledgeIngestUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.KnowledgeStore,
	extractors ...FileExtractor,
) *KnowledgeIngestUseCase {
	return &KnowledgeIngestUseCase{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		extractors: extractors,
	}
}

// IngestDirectory ingests every supported file in dir and returns the
// number of chunks indexed. Files are processed in name order so repeated
// runs against the same directory produce the same chunk ids per index.
func (uc *KnowledgeIngestUseCase) IngestDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read knowledge dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		extractor := uc.extractorFor(path)
		if extractor == nil {
			slog.Debug("knowledge_file_skipped", "file", name)
			continue
		}

		text, err := extractor.Extract(path)
		if err != nil {
			return total, fmt.Errorf("extract %s: %w", name, err)
		}
		if strings.TrimSpace(text) == "" {
			slog.Warn("knowledge_file_empty", "file", name)
			continue
		}

		n, err := uc.ingestText(ctx, text, name)
		if err != nil {
			return total, fmt.Errorf("ingest %s: %w", name, err)
		}
		total += n
	}

	if total == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "ingest directory", fmt.Errorf("no ingestible knowledge in %s", dir))
	}
	return total, nil
}

// EnsureIngested ingests only when the store is empty, so api startup can
// call it unconditionally.
func (uc *KnowledgeIngestUseCase) EnsureIngested(ctx context.Context, dir string) error {
	count, err := uc.store.Count(ctx)
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "count knowledge chunks", err)
	}
	if count > 0 {
		slog.Info("knowledge_store_populated", "chunks", count)
		return nil
	}

	ingested, err := uc.IngestDirectory(ctx, dir)
	if err != nil {
		return err
	}
	slog.Info("knowledge_store_ingested", "chunks", ingested, "dir", dir)
	return nil
}

func (uc *KnowledgeIngestUseCase) ingestText(ctx context.Context, text, source string) (int, error) {
	pieces := uc.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}

	vectors, err := uc.embedder.Embed(ctx, pieces)
	if err != nil {
		return 0, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed chunks", err)
	}
	if len(vectors) != len(pieces) {
		return 0, fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(pieces))
	}

	chunks := make([]domain.KnowledgeChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.KnowledgeChunk{
			ID:         chunkID(source, i),
			Text:       piece,
			Source:     source,
			ChunkIndex: i,
		})
	}

	if err := uc.store.IndexChunks(ctx, chunks, vectors); err != nil {
		return 0, domain.WrapError(domain.ErrStoreUnavailable, "index chunks", err)
	}
	return len(chunks), nil
}

// chunkID is a UUIDv5 of source and chunk index. Qdrant only accepts UUID
// or integer point ids, so the deterministic key is hashed into one.
func chunkID(source string, index int) string {
	name := "solarmon:knowledge:" + source + "#" + strconv.Itoa(index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func (uc *KnowledgeIngestUseCase) extractorFor(path string) FileExtractor {
	for _, e := range uc.extractors {
		if e.Supports(path) {
			return e
		}
	}
	return nil
}
