package plaintext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor reads .txt and .md knowledge files.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

func (e *Extractor) Extract(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read knowledge file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid utf-8: %s", filepath.Base(path))
	}
	return strings.TrimSpace(string(raw)), nil
}
