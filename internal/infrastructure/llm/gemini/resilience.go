package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/resilience"
)

const defaultRetryAfter = 10 * time.Second

// RateLimitError carries the server-suggested backoff from a 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gemini rate limited, retry after %s", e.RetryAfter)
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("gemini status: %s", e.Status)
	}
	return fmt.Sprintf("gemini status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func asRateLimit(err error, target **RateLimitError) bool {
	return errors.As(err, target)
}

func classifyGeminiError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		// The key loop already rotated through every key; retrying the
		// whole request immediately would burn quota for nothing.
		return resilience.ErrorClassification{RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{RecordFailure: true}
}

var retryDelayPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)s$`)

// retryAfterFromResponse prefers the Retry-After header, then the
// RetryInfo detail the API embeds in the error body.
func retryAfterFromResponse(resp *http.Response, body []byte) time.Duration {
	if header := strings.TrimSpace(resp.Header.Get("Retry-After")); header != "" {
		if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	if delay, ok := parseRetryDelay(body); ok {
		return delay
	}
	return defaultRetryAfter
}

func parseRetryDelay(body []byte) (time.Duration, bool) {
	var payload struct {
		Error struct {
			Details []map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, false
	}
	for _, detail := range payload.Error.Details {
		typeName, _ := detail["@type"].(string)
		if !strings.HasSuffix(typeName, "RetryInfo") {
			continue
		}
		delay, _ := detail["retryDelay"].(string)
		match := retryDelayPattern.FindStringSubmatch(strings.TrimSpace(delay))
		if match == nil {
			continue
		}
		seconds, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	return 0, false
}
