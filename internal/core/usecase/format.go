package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

// NoContextSentinel is returned for an empty result set so downstream
// prompt assembly always has a non-empty context section.
const NoContextSentinel = "(no relevant context found)"

const contextBlockSeparator = "\n\n---\n\n"

// FormatContext renders retrieved contexts as labeled plain-text blocks
// ready for LLM prompt assembly. Content is passed through unchanged.
func FormatContext(contexts []domain.RetrievedContext) string {
	if len(contexts) == 0 {
		return NoContextSentinel
	}

	blocks := make([]string, 0, len(contexts))
	for _, c := range contexts {
		blocks = append(blocks, fmt.Sprintf("[CONTEXT %d | source=%s | score=%.4f]\n%s", c.Rank, c.Source, c.Score, c.Text))
	}
	return strings.Join(blocks, contextBlockSeparator)
}
