package esp32

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/solar-panel-monitor/internal/core/domain"
)

const snapshotTimeout = 5 * time.Second

// Client pulls snapshots from ESP32-CAM boards mounted at the panels.
// The URL template may contain {panel_id}; otherwise one shared camera
// endpoint serves every panel.
type Client struct {
	urlTemplate string
	httpClient  *http.Client
}

func New(urlTemplate string) *Client {
	return &Client{
		urlTemplate: urlTemplate,
		httpClient:  &http.Client{Timeout: snapshotTimeout},
	}
}

func (c *Client) Snapshot(ctx context.Context, panelID string) ([]byte, string, error) {
	url := strings.ReplaceAll(c.urlTemplate, "{panel_id}", panelID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create snapshot request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrCameraUnreachable, "camera snapshot", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", domain.WrapError(domain.ErrCameraUnreachable, "camera snapshot",
			fmt.Errorf("camera status: %s", resp.Status))
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrCameraUnreachable, "camera snapshot", err)
	}
	if len(image) == 0 {
		return nil, "", domain.WrapError(domain.ErrCameraUnreachable, "camera snapshot",
			fmt.Errorf("camera returned empty body"))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return image, contentType, nil
}
