// Package client calls a running sandbox server over HTTP.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	apihttp "github.com/GriffinCanCode/AgentOS/sandbox/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/registry"
)

// Options configures a Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	RateLimit float64 // requests per second, 0 for unlimited
	UserAgent string
}

// Client wraps resty with retries and client-side rate limiting
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string `json:"error"`
	Phase   string `json:"phase"`
}

func (e *APIError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("server returned %d: %s failed: %s", e.Status, e.Phase, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// New creates a client for the server at opts.BaseURL
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "sandboxctl/1.0"
	}

	transport := retryablehttp.NewClient()
	transport.RetryMax = 0
	transport.Logger = nil

	r := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", opts.UserAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTransport(transport.HTTPClient.Transport).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			switch resp.StatusCode() {
			case http.StatusServiceUnavailable, http.StatusTooManyRequests:
				return true
			}
			return false
		})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(opts.RateLimit)))
	}
	return &Client{resty: r, limiter: limiter}
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}
	return c.resty.R().SetContext(ctx).SetError(&APIError{}), nil
}

// Health returns the server's health body
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	resp, err := req.SetResult(&out).Get("/health")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Render executes source once. A component that fails to render is
// returned with Error and Phase set, not as an error.
func (c *Client) Render(ctx context.Context, source string, width, height float64) (*apihttp.RenderResponse, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out apihttp.RenderResponse
	resp, err := req.
		SetBody(apihttp.RenderRequest{Source: source, Width: width, Height: height}).
		SetResult(&out).
		Post("/render")
	if err == nil && resp.StatusCode() == http.StatusUnprocessableEntity {
		if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
			return nil, fmt.Errorf("failed to decode render: %w", err)
		}
		return &out, nil
	}
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderPNG executes source once and returns the painted PNG
func (c *Client) RenderPNG(ctx context.Context, source string, width, height float64) ([]byte, error) {
	return c.renderRaw(ctx, "/render/png", source, width, height)
}

// RenderHTML executes source once and returns the HTML export
func (c *Client) RenderHTML(ctx context.Context, source string, width, height float64) ([]byte, error) {
	return c.renderRaw(ctx, "/render/html", source, width, height)
}

func (c *Client) renderRaw(ctx context.Context, path, source string, width, height float64) ([]byte, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetQueryParams(sizeParams(width, height)).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody([]byte(source)).
		Post(path)
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Modules lists the server's module library, filtered by tag when set
func (c *Client) Modules(ctx context.Context, tag string) ([]registry.Metadata, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Modules []registry.Metadata `json:"modules"`
	}
	if tag != "" {
		req.SetQueryParam("tag", tag)
	}
	resp, err := req.SetResult(&out).Get("/modules")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Modules, nil
}

// PutModule creates or replaces a module
func (c *Client) PutModule(ctx context.Context, id string, mod apihttp.ModuleRequest) (registry.Metadata, error) {
	req, err := c.request(ctx)
	if err != nil {
		return registry.Metadata{}, err
	}
	var out registry.Metadata
	resp, err := req.SetPathParam("id", id).SetBody(mod).SetResult(&out).Put("/modules/{id}")
	if err := check(resp, err); err != nil {
		return registry.Metadata{}, err
	}
	return out, nil
}

// RenderModule renders a stored module in the given format (json, png or
// html) and returns the raw body
func (c *Client) RenderModule(ctx context.Context, id, format string) ([]byte, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetPathParam("id", id).SetQueryParam("format", format).Post("/modules/{id}/render")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{Message: http.StatusText(resp.StatusCode())}
	}
	apiErr.Status = resp.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}

func sizeParams(width, height float64) map[string]string {
	params := map[string]string{}
	if width > 0 {
		params["width"] = strconv.FormatFloat(width, 'f', -1, 64)
	}
	if height > 0 {
		params["height"] = strconv.FormatFloat(height, 'f', -1, 64)
	}
	return params
}
