// Package admin calls the user pool administration REST endpoints.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/orgdata/internal/auth"
	"github.com/wolfeidau/orgdata/internal/backend"
	"github.com/wolfeidau/orgdata/internal/report"
	"github.com/wolfeidau/orgdata/internal/telemetry"
)

const (
	pathAddUserToGroup = "/addUserToGroup"
	pathSignUserOut    = "/signUserOut"

	maxResponseBody = 64 << 10
)

// ErrAdminURLRequired is returned when no admin API base URL is configured.
var ErrAdminURLRequired = errors.New("admin api url is required")

// Client posts to the admin API with the signed in user's access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   auth.SessionSource
	reporter   *report.Reporter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithReporter sets the failure reporter.
func WithReporter(r *report.Reporter) Option {
	return func(c *Client) {
		c.reporter = r
	}
}

// New creates an admin client for baseURL.
func New(baseURL string, sessions auth.SessionSource, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		reporter: report.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type addUserToGroupRequest struct {
	Username  string `json:"username"`
	Groupname string `json:"groupname"`
}

type signUserOutRequest struct {
	Username string `json:"username"`
}

// AddUserToGroup adds username to groupname.
func (c *Client) AddUserToGroup(ctx context.Context, username, groupname string) (map[string]any, error) {
	return c.post(ctx, pathAddUserToGroup, addUserToGroupRequest{Username: username, Groupname: groupname})
}

// SignUserOut revokes every session of username.
func (c *Client) SignUserOut(ctx context.Context, username string) (map[string]any, error) {
	return c.post(ctx, pathSignUserOut, signUserOutRequest{Username: username})
}

// post sends body to path. Failures are reported once and returned.
func (c *Client) post(ctx context.Context, path string, body any) (map[string]any, error) {
	started := time.Now()

	out, err := c.do(ctx, path, body)

	attrs := metric.WithAttributes(
		attribute.String("path", path),
		attribute.Bool("error", err != nil),
	)
	telemetry.GetMetrics().AdminCallsTotal.Add(ctx, 1, attrs)

	if err != nil {
		c.reporter.Report(ctx, path, err)
		return nil, err
	}

	log.Debug().Str("path", path).Dur("duration", time.Since(started)).Msg("admin call")

	return out, nil
}

func (c *Client) do(ctx context.Context, path string, body any) (map[string]any, error) {
	if c.baseURL == "" {
		return nil, ErrAdminURLRequired
	}
	if c.sessions == nil {
		return nil, auth.ErrNoSession
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := auth.AccessToken(ctx, c.sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call admin api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &backend.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(data))}
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}
