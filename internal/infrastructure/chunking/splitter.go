package chunking

import "strings"

const (
	defaultChunkSize = 600
	defaultOverlap   = 80
)

// Splitter cuts cleaned text into fixed-size character windows with
// overlap, so a fact that straddles a boundary survives in at least
// one chunk.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	cleaned := normalize(text)
	runes := []rune(cleaned)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		return []string{cleaned}
	}

	out := make([]string, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - s.Overlap
	}
	return out
}

// normalize strips per-line whitespace and collapses blank runs so
// chunk boundaries do not land inside formatting noise.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(cleaned) > 0 {
				cleaned = append(cleaned, "")
			}
			blank = true
			continue
		}
		blank = false
		cleaned = append(cleaned, trimmed)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
