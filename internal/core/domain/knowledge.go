package domain

// KnowledgeChunk is one retrievable unit of ingested maintenance knowledge.
// The embedding vector is owned by the vector store once indexed and is
// never mutated afterwards; chunks are replaced only by a full re-ingestion.
type KnowledgeChunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// KnowledgeChunkHit is a raw store search result. Score is cosine
// similarity, higher is better; backend adapters normalize to that
// convention before results leave the infrastructure layer.
type KnowledgeChunkHit struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// RetrievedContext is a ranked retrieval result, constructed fresh per
// query and discarded after formatting.
type RetrievedContext struct {
	Rank   int     `json:"rank"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}
