package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

// Store keeps knowledge chunks and their embeddings in a local sqlite
// file and answers searches with a brute-force cosine scan. Suited for
// single-node deployments where running a vector server is overkill.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite vector store: %w", err)
	}
	// The embedded driver serializes writes itself; a single connection
	// avoids SQLITE_BUSY on concurrent ingest.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS knowledge_chunks (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    text        TEXT NOT NULL,
    embedding   BLOB NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("ensure knowledge_chunks schema: %w", err)
	}
	return nil
}

func (s *Store) IndexChunks(ctx context.Context, chunks []domain.KnowledgeChunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO knowledge_chunks (id, source, chunk_index, text, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    source = excluded.source,
    chunk_index = excluded.chunk_index,
    text = excluded.text,
    embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.Source, chunk.ChunkIndex, chunk.Text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, k int) ([]domain.KnowledgeChunkHit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, source, text, embedding FROM knowledge_chunks`)
	if err != nil {
		return nil, fmt.Errorf("scan knowledge_chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]domain.KnowledgeChunkHit, 0, k)
	for rows.Next() {
		var (
			hit  domain.KnowledgeChunkHit
			blob []byte
		)
		if err := rows.Scan(&hit.ChunkID, &hit.Source, &hit.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", hit.ChunkID, err)
		}
		hit.Score = cosineSimilarity(queryVector, vector)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count knowledge_chunks: %w", err)
	}
	return n, nil
}

func encodeVector(vector []float32) []byte {
	out := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
