package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/orgdata/internal/auth"
)

// TokenSource serves a profile's tokens, refreshing through the profile's
// token endpoint when possible and writing refreshed tokens back to the store.
type TokenSource struct {
	store   *Store
	profile *Profile
	base    oauth2.TokenSource

	mu        sync.Mutex
	lastToken string
}

// NewTokenSource resolves name (empty uses the default profile) and returns
// a token source for it.
func NewTokenSource(ctx context.Context, store *Store, name string) (*TokenSource, error) {
	profile, err := store.Resolve(name)
	if err != nil {
		if errors.Is(err, ErrNoDefaultProfile) {
			return nil, fmt.Errorf("no profile specified and no default set\n\n" +
				"Either specify a profile with --profile or set a default:\n" +
				"  orgdata credentials set-default <name>")
		}
		return nil, err
	}

	tok, err := store.LoadToken(profile.Name)
	if err != nil {
		return nil, err
	}

	var base oauth2.TokenSource
	if profile.Refreshable {
		base = profile.OAuth2Config().TokenSource(ctx, tok)
	} else {
		base = oauth2.StaticTokenSource(tok)
	}

	log.Debug().
		Str("profile", profile.Name).
		Bool("refreshable", profile.Refreshable).
		Msg("initialized token source")

	return &TokenSource{
		store:     store,
		profile:   profile,
		base:      base,
		lastToken: tok.AccessToken,
	}, nil
}

// Profile returns the resolved profile.
func (t *TokenSource) Profile() *Profile {
	return t.profile
}

// Token implements oauth2.TokenSource.
func (t *TokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.base.Token()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if tok.AccessToken != t.lastToken {
		if err := t.store.SaveToken(t.profile.Name, tok); err != nil {
			log.Warn().Err(err).Str("profile", t.profile.Name).Msg("failed to persist refreshed token")
		} else {
			log.Debug().
				Str("profile", t.profile.Name).
				Str("fingerprint", auth.Fingerprint(tok.AccessToken)).
				Msg("refreshed token persisted")
		}
		t.lastToken = tok.AccessToken
	}

	return tok, nil
}
