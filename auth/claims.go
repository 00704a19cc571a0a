package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/pkg/errors"
)

// AccessClaims is the informational content of an access token. The
// signature is not verified here and nothing in the session lifecycle
// depends on it: expiry is still only discovered through a rejected request.
type AccessClaims struct {
	UserID    any    `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// User returns the user id claim as text, falling back to sub.
func (c *AccessClaims) User() string {
	switch v := c.UserID.(type) {
	case nil:
		return c.Subject
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// Expiry is zero when the token carries no exp claim.
func (c *AccessClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Claims decodes the held access token without verifying it.
func (m *Manager) Claims() (*AccessClaims, error) {
	access, err := m.store.AccessToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Claims] read access token")
	}
	if access == "" {
		return nil, errors.Wrap(ierrors.ErrUnauthenticated, "[Manager.Claims] no access token")
	}
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil, errors.Wrap(err, "[Manager.Claims] access token is not a JWT")
	}
	return claims, nil
}
