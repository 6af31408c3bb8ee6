package transform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
)

// maxResponseBytes bounds the code returned by a remote service
const maxResponseBytes = 8 << 20

// RemoteConfig configures a Remote transformer
type RemoteConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

type remoteRequest struct {
	Source string `json:"source"`
}

type remoteResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Remote delegates to an HTTP transform service. It posts {"source"} and
// expects {"code"} or {"error"}.
type Remote struct {
	url    string
	client *retryablehttp.Client
}

// NewRemote creates a remote transformer
func NewRemote(cfg RemoteConfig) *Remote {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	if cfg.MinWait > 0 {
		client.RetryWaitMin = cfg.MinWait
	}
	if cfg.MaxWait > 0 {
		client.RetryWaitMax = cfg.MaxWait
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	client.Logger = nil

	return &Remote{url: cfg.URL, client: client}
}

// Name identifies the transformer in logs and metrics
func (r *Remote) Name() string {
	return "remote"
}

// Transform posts the source to the service
func (r *Remote) Transform(ctx context.Context, source string) (string, error) {
	body, err := sonic.Marshal(remoteRequest{Source: source})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transform service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out remoteResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("invalid transform response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrTransform, out.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transform service returned status %d", resp.StatusCode)
	}
	return out.Code, nil
}
