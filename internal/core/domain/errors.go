package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrTemporary    = errors.New("temporary failure")

	// ErrEmbeddingUnavailable is fatal to a retrieval call: without a
	// query vector there is nothing to search with.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrStoreUnavailable is non-fatal to retrieval: callers degrade to
	// an empty context instead of failing the analysis.
	ErrStoreUnavailable = errors.New("knowledge store unavailable")

	ErrRateLimited = errors.New("rate limited")

	ErrCameraUnreachable = errors.New("camera unreachable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
