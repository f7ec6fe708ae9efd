package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
	"github.com/kirillkom/solar-panel-monitor/internal/infrastructure/resilience"
)

// Client calls the inference sidecar that hosts the defect model. The
// sidecar accepts a multipart image upload and answers with the primary
// defect plus the score distribution.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) ClassifyImage(ctx context.Context, image []byte, panelID string) (domain.ClassificationResult, error) {
	if len(image) == 0 {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrInvalidInput, "classify image", errors.New("empty image payload"))
	}

	var result domain.ClassificationResult
	err := c.executor.Execute(ctx, "classifier.classify", func(ctx context.Context) error {
		classified, err := c.classifyOnce(ctx, image, panelID)
		if err != nil {
			return err
		}
		result = classified
		return nil
	}, classifyInferenceError)
	if err != nil {
		if classifyInferenceError(err).Retryable || resilience.IsCircuitOpen(err) {
			return domain.ClassificationResult{}, domain.WrapError(domain.ErrTemporary, "classify image", err)
		}
		return domain.ClassificationResult{}, err
	}

	result.PanelID = panelID
	return result, nil
}

func (c *Client) classifyOnce(ctx context.Context, image []byte, panelID string) (domain.ClassificationResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "panel.jpg")
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("write image part: %w", err)
	}
	if panelID != "" {
		if err := writer.WriteField("panel_id", panelID); err != nil {
			return domain.ClassificationResult{}, fmt.Errorf("write panel_id field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", &body)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("inference classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.ClassificationResult{}, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	var result domain.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("decode classify response: %w", err)
	}
	if result.PrimaryDefect == "" {
		return domain.ClassificationResult{}, fmt.Errorf("inference response missing primary_defect")
	}
	return result, nil
}

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("inference classify status: %s", e.Status)
	}
	return fmt.Sprintf("inference classify status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func classifyInferenceError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
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
