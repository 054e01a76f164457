package pagebuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront-gateway/internal/resilience"
)

// Client renders no-code page components through the external page-builder
// service. The response body is opaque to the gateway and passed through to
// the caller untouched. Calls are single-attempt but sit behind a circuit
// breaker so a dead renderer does not stall every page view.
type Client struct {
	BaseURL   string
	ProjectID string
	Token     string
	HTTP      resilience.HTTPClient
	Logger    zerolog.Logger
}

// New constructs a renderer client.
func New(baseURL, projectID, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		ProjectID: projectID,
		Token:     token,
		HTTP: resilience.HTTPClient{
			Client: &http.Client{
				Timeout:   timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			},
			Breaker:     resilience.NewBreaker(5, 0.6, 30*time.Second).WithTarget("pagebuilder"),
			MaxAttempts: 1,
		},
		Logger: logger,
	}
}

type renderRequest struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
}

// Render posts a component name and its property bag and returns whatever
// the renderer answers.
func (c *Client) Render(ctx context.Context, component string, props map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(renderRequest{Component: component, Props: props})
	if err != nil {
		return nil, fmt.Errorf("pagebuilder: encode render request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("pagebuilder: build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Plasmic-Api-Project-Tokens", c.ProjectID+":"+c.Token)

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("pagebuilder: render %q: %w", component, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("pagebuilder: read render response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Logger.Warn().Int("status", resp.StatusCode).Str("component", component).Msg("pagebuilder render rejected")
		return nil, fmt.Errorf("pagebuilder: render %q returned %d", component, resp.StatusCode)
	}
	return json.RawMessage(body), nil
}
