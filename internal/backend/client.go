package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront-gateway/internal/obs"
)

// Client talks to the platform REST backend. All collection and mutation
// traffic of the gateway flows through it; it does not retry (the only
// two-attempt behaviour is the toggle-state verb fallback).
type Client struct {
	BaseURL string
	Tenant  string
	HTTP    *http.Client
	Logger  zerolog.Logger
}

// New constructs a Client with an instrumented transport and the given
// request timeout.
func New(baseURL, tenant string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Tenant:  strings.TrimSpace(tenant),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger: logger,
	}
}

// Ping reports whether the backend answers HTTP at all. Any status counts
// as reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/", nil, nil, nil); err != nil && errors.Is(err, ErrUnreachable) {
		return err
	}
	return nil
}

// TenantPath prefixes a collection path with the tenant scope.
func (c *Client) TenantPath(path string) string {
	if c.Tenant == "" {
		return path
	}
	return "/tenants/" + c.Tenant + path
}

// ListResult is one fetched page of a collection. Total is -1 when the
// backend answered with a bare array and the collection size is unknown.
type ListResult struct {
	Items []map[string]any
	Total int
}

// List fetches a collection page. The backend answers either with a bare
// JSON array or an {items, total} envelope; both are accepted.
func (c *Client) List(ctx context.Context, path string, query url.Values) (ListResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return ListResult{}, err
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		return ListResult{Items: items, Total: -1}, nil
	}

	var envelope struct {
		Items []map[string]any `json:"items"`
		Total *int             `json:"total"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Items == nil {
		return ListResult{}, fmt.Errorf("unexpected list payload for %s", path)
	}
	total := -1
	if envelope.Total != nil {
		total = *envelope.Total
	}
	return ListResult{Items: envelope.Items, Total: total}, nil
}

// GetJSON issues a GET and decodes the response body into dst.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dst any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, dst)
}

// PostJSON issues a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, dst)
}

// PutJSON issues a PUT with a JSON body.
func (c *Client) PutJSON(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, dst)
}

// PatchJSON issues a PATCH with a JSON body.
func (c *Client) PatchJSON(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, dst)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// ToggleState updates a state sub-resource. The primary verb is PUT; when
// the backend rejects the verb (405/404) the same payload is sent once via
// PATCH before the failure is surfaced. A compatibility shim for routes the
// platform mounted under inconsistent verbs, not a retry mechanism.
func (c *Client) ToggleState(ctx context.Context, path string, body, dst any) error {
	err := c.PutJSON(ctx, path, body, dst)
	if err == nil || !isVerbMismatch(err) {
		return err
	}
	c.Logger.Debug().Str("path", path).Msg("state verb rejected, falling back to PATCH")
	return c.PatchJSON(ctx, path, body, dst)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dst any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	observeLatency(method, time.Since(start))
	if err != nil {
		countRequest(method, "unreachable")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		countRequest(method, "unreachable")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		countRequest(method, "rejected")
		return newAPIError(resp.StatusCode, raw)
	}
	countRequest(method, "ok")

	if dst == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func countRequest(method, result string) {
	if obs.BackendRequestsTotal == nil {
		return
	}
	obs.BackendRequestsTotal.WithLabelValues(method, result).Inc()
}

func observeLatency(method string, d time.Duration) {
	if obs.BackendRequestLatency == nil {
		return
	}
	obs.BackendRequestLatency.WithLabelValues(method).Observe(float64(d.Milliseconds()))
}
