package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rs/zerolog/log"
)

// ErrKeyNotFound is returned when a kid is not present in the JWKS.
var ErrKeyNotFound = errors.New("kid not found in JWKS")

// KeyCache fetches and caches user pool signing keys from a JWKS endpoint.
// Keys are cached for an hour; pair it with a caching HTTP client so the
// endpoint's own Cache-Control is honoured across restarts.
type KeyCache struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedJWKS
}

type cachedJWKS struct {
	set       jwk.Set
	expiresAt time.Time
}

// NewKeyCache creates a new key cache.
func NewKeyCache(httpClient *http.Client) *KeyCache {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}

	return &KeyCache{
		httpClient: httpClient,
		ttl:        time.Hour,
		cache:      make(map[string]*cachedJWKS),
	}
}

// JWKSURL returns the well-known JWKS location of a user pool.
func JWKSURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, userPoolID)
}

// Keyfunc returns a jwt.Keyfunc resolving the token's kid against jwksURL.
// Any JWKS fetch it triggers is bound to ctx.
func (c *KeyCache) Keyfunc(ctx context.Context, jwksURL string) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return c.GetKey(ctx, jwksURL, kid)
	}
}

// GetKey returns the raw public key for kid, fetching the JWKS on a miss.
func (c *KeyCache) GetKey(ctx context.Context, jwksURL, kid string) (any, error) {
	c.mu.RLock()
	cached, ok := c.cache[jwksURL]
	c.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		if key, ok := cached.set.LookupKeyID(kid); ok {
			log.Debug().Str("kid", kid).Msg("JWKS cache hit")
			return rawKey(key)
		}
	}

	// miss, expired or rotated
	set, err := c.fetch(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[jwksURL] = &cachedJWKS{
		set:       set,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}

	log.Info().Str("kid", kid).Int("total_keys", set.Len()).Msg("Cached JWKS")
	return rawKey(key)
}

func (c *KeyCache) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	log.Debug().Str("jwks_url", jwksURL).Msg("Fetching JWKS")

	set, err := jwk.Fetch(ctx, jwksURL, jwk.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	return set, nil
}

// rawKey converts a JWK into the *rsa.PublicKey or *ecdsa.PublicKey golang-jwt verifies with.
func rawKey(key jwk.Key) (any, error) {
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JWK %s: %w", key.KeyID(), err)
	}
	return raw, nil
}
