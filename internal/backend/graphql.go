// Package backend sends GraphQL operations to the managed API over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/orgdata/internal/auth"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// AuthMode selects how requests are authorized.
type AuthMode string

const (
	// AuthModeUserPool sends the signed in user's access token.
	AuthModeUserPool AuthMode = "AMAZON_COGNITO_USER_POOLS"
	// AuthModeIAM signs requests with AWS SigV4 credentials.
	AuthModeIAM AuthMode = "AWS_IAM"
)

// RequestIDHeader carries the client generated id of each operation.
const RequestIDHeader = "X-Request-Id"

// Request is one GraphQL operation.
type Request struct {
	OperationName string
	Document      string
	Variables     map[string]any
	AuthMode      AuthMode
	// RequestID is sent as the X-Request-Id header when set.
	RequestID string
}

// Transport executes GraphQL requests and returns the response data keyed by
// top level field.
type Transport interface {
	Do(ctx context.Context, req Request) (map[string]json.RawMessage, error)
}

type payload struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []ErrorDetail              `json:"errors,omitempty"`
}

// Client is an HTTP GraphQL transport.
type Client struct {
	endpoint   string
	httpClient *http.Client
	sessions   auth.SessionSource
	signer     *IAMSigner
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithIAMSigner enables AuthModeIAM requests.
func WithIAMSigner(signer *IAMSigner) Option {
	return func(c *Client) {
		c.signer = signer
	}
}

// NewClient creates a transport for the GraphQL endpoint. sessions supplies
// the access token for AuthModeUserPool requests.
func NewClient(endpoint string, sessions auth.SessionSource, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do sends req and returns the decoded data object.
func (c *Client) Do(ctx context.Context, req Request) (map[string]json.RawMessage, error) {
	body, err := json.Marshal(payload{Query: req.Document, Variables: req.Variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.RequestID != "" {
		httpReq.Header.Set(RequestIDHeader, req.RequestID)
	}

	if err := c.authorize(ctx, httpReq, req.AuthMode, body); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(b))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(env.Errors) > 0 {
		return nil, &GraphQLError{Operation: req.OperationName, Errors: env.Errors}
	}

	return env.Data, nil
}

func (c *Client) authorize(ctx context.Context, httpReq *http.Request, mode AuthMode, body []byte) error {
	switch mode {
	case AuthModeUserPool, "":
		if c.sessions == nil {
			return fmt.Errorf("%w: no session source for %s", ErrUnsupportedAuthMode, AuthModeUserPool)
		}
		token, err := auth.AccessToken(ctx, c.sessions)
		if err != nil {
			return fmt.Errorf("failed to get access token: %w", err)
		}
		// user pool authorizers take the raw JWT, without a Bearer prefix
		httpReq.Header.Set("Authorization", token)

		log.Debug().Str("token_fp", auth.Fingerprint(token)).Msg("authorized request with user pool token")
		return nil

	case AuthModeIAM:
		if c.signer == nil {
			return fmt.Errorf("%w: %s not configured", ErrUnsupportedAuthMode, AuthModeIAM)
		}
		return c.signer.Sign(ctx, httpReq, body)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAuthMode, mode)
	}
}
