package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfeidau/orgdata/internal/models"
)

// GroupsClaim is the access token claim listing the user's pool groups.
const GroupsClaim = "cognito:groups"

// ErrInvalidToken is returned when an access token cannot be parsed or verified.
var ErrInvalidToken = errors.New("invalid access token")

// Claims are the user pool access token claims this client reads.
type Claims struct {
	jwt.RegisteredClaims
	Groups   []string `json:"cognito:groups,omitempty"`
	Username string   `json:"username,omitempty"`
	TokenUse string   `json:"token_use,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
}

// ParseToken extracts claims from an access token. With a nil keyfunc the
// signature is not checked, which is only appropriate for tokens this client
// obtained from the identity provider itself.
func ParseToken(tokenString string, keyfunc jwt.Keyfunc) (*Claims, error) {
	claims := &Claims{}

	if keyfunc == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// NewSession converts verified claims into a session.
func NewSession(accessToken string, claims *Claims) *models.Session {
	session := &models.Session{
		AccessToken: accessToken,
		Username:    claims.Username,
		Subject:     claims.Subject,
		Groups:      claims.Groups,
	}
	if session.Username == "" {
		session.Username = claims.Subject
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session
}
