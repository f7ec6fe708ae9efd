package pdf

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls plain text out of PDF manuals and datasheets.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (e *Extractor) Extract(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
