package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client generates maintenance recommendations through the Gemini REST
// API. Multiple API keys are tried in order so a rate-limited key does
// not fail the whole request.
type Client struct {
	baseURL         string
	model           string
	keys            []string
	maxOutputTokens int
	temperature     float64
	limiter         *rate.Limiter
	httpClient      *http.Client
	executor        *resilience.Executor
}

type Options struct {
	BaseURL         string
	Model           string
	Keys            []string
	MaxOutputTokens int
	RequestsPerMin  int
	Executor        *resilience.Executor
}

func New(opts Options) (*Client, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("gemini: no API keys configured")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = "models/gemini-2.5-flash"
	}
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2500
	}
	perMin := opts.RequestsPerMin
	if perMin <= 0 {
		perMin = 10
	}

	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		model:           model,
		keys:            opts.Keys,
		maxOutputTokens: maxTokens,
		temperature:     0.3,
		limiter:         rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		executor:        opts.Executor,
	}, nil
}

// ParseKeys splits a comma- or pipe-separated key list.
func ParseKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	separator := "|"
	if strings.Contains(raw, ",") {
		separator = ","
	}
	parts := strings.Split(raw, separator)
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Client) GenerateRecommendation(ctx context.Context, result domain.ClassificationResult, ragContext string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	prompt := buildRecommendationPrompt(result, ragContext)

	var out string
	err := c.executor.Execute(ctx, "gemini.generate", func(ctx context.Context) error {
		text, err := c.generateWithFailover(ctx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	}, classifyGeminiError)
	if err != nil {
		var rlErr *RateLimitError
		if asRateLimit(err, &rlErr) {
			return "", domain.WrapError(domain.ErrRateLimited, "gemini generate", err)
		}
		return "", err
	}
	return out, nil
}

// generateWithFailover walks the key list until one succeeds. Keys that
// answer 429 are skipped for this request; the last failure wins when
// every key is exhausted.
func (c *Client) generateWithFailover(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, key := range c.keys {
		text, err := c.generateOnce(ctx, key, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		var rlErr *RateLimitError
		if asRateLimit(err, &rlErr) {
			slog.Warn("gemini_key_rate_limited",
				"key_index", i+1,
				"key_count", len(c.keys),
				"retry_after_s", rlErr.RetryAfter.Seconds(),
			)
		} else {
			slog.Warn("gemini_key_failed", "key_index", i+1, "key_count", len(c.keys), "error", err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("all %d gemini key(s) exhausted: %w", len(c.keys), lastErr)
}

func (c *Client) generateOnce(ctx context.Context, key, prompt string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]any{{"text": prompt}},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     c.temperature,
			"maxOutputTokens": c.maxOutputTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini generate request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{RetryAfter: retryAfterFromResponse(resp, raw)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(raw), 2048),
		}
	}

	var genResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &genResp); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return normalizeMarkdown(b.String()), nil
}

func normalizeMarkdown(text string) string {
	out := strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
