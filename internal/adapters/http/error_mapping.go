package httpadapter

import (
	"net/http"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrCameraUnreachable):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrEmbeddingUnavailable),
		domain.IsKind(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
