package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/orgdata/internal/models"
)

func generateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func generateECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

// publicJWK wraps a public key as a signing JWK with the given kid.
func publicJWK(t *testing.T, kid string, pub any) jwk.Key {
	t.Helper()
	key, err := jwk.FromRaw(pub)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))
	return key
}

func accessClaims(groups ...string) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3f1c2b7e-0000-4000-8000-000000000001",
			Issuer:    "https://cognito-idp.ap-northeast-1.amazonaws.com/ap-northeast-1_test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Groups:   groups,
		Username: "jane",
		TokenUse: "access",
		ClientID: "client-123",
	}
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

type stubSessions struct {
	session *models.Session
	err     error
	calls   int
}

func (s *stubSessions) Session(context.Context) (*models.Session, error) {
	s.calls++
	return s.session, s.err
}

type stubScope struct {
	scope models.Scope
	err   error
}

func (s stubScope) Scope(context.Context) (models.Scope, error) {
	return s.scope, s.err
}
