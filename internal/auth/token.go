package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/orgdata/internal/models"
)

var (
	// ErrNoSession is returned when there is no signed in user.
	ErrNoSession = errors.New("no current session")

	// ErrSessionExpired is returned when the token has expired and could not be refreshed.
	ErrSessionExpired = errors.New("session expired")
)

// SessionSource yields the current authenticated session.
type SessionSource interface {
	Session(ctx context.Context) (*models.Session, error)
}

// TokenSession reads sessions from an oauth2 token source. Wrapping the
// source with oauth2.ReuseTokenSource (or oauth2.Config.TokenSource) gives
// refresh on expiry.
type TokenSession struct {
	tokens  oauth2.TokenSource
	keyfunc jwt.Keyfunc

	keys    *KeyCache
	jwksURL string
}

// SessionOption configures a TokenSession.
type SessionOption func(*TokenSession)

// WithKeyfunc verifies access token signatures with kf.
func WithKeyfunc(kf jwt.Keyfunc) SessionOption {
	return func(s *TokenSession) {
		s.keyfunc = kf
	}
}

// WithKeyCache verifies access token signatures against the JWKS at jwksURL.
// Key fetches run under the context passed to Session.
func WithKeyCache(keys *KeyCache, jwksURL string) SessionOption {
	return func(s *TokenSession) {
		s.keys = keys
		s.jwksURL = jwksURL
	}
}

// NewTokenSession creates a session source over tokens.
func NewTokenSession(tokens oauth2.TokenSource, opts ...SessionOption) *TokenSession {
	s := &TokenSession{tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the current session.
func (s *TokenSession) Session(ctx context.Context) (*models.Session, error) {
	if s.tokens == nil {
		return nil, ErrNoSession
	}

	tok, err := s.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNoSession
	}

	keyfunc := s.keyfunc
	if s.keys != nil {
		keyfunc = s.keys.Keyfunc(ctx, s.jwksURL)
	}

	claims, err := ParseToken(tok.AccessToken, keyfunc)
	if err != nil {
		return nil, err
	}

	session := NewSession(tok.AccessToken, claims)
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	log.Debug().
		Str("username", session.Username).
		Str("token_fp", Fingerprint(tok.AccessToken)).
		Int("groups", len(session.Groups)).
		Msg("resolved session")

	return session, nil
}

// AccessToken returns just the bearer token of the current session.
func AccessToken(ctx context.Context, sessions SessionSource) (string, error) {
	session, err := sessions.Session(ctx)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// Fingerprint returns a log-safe identifier for a token: the base58-encoded
// SHA-256 of the token. Display code may shorten it.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return base58.Encode(sum[:])
}
