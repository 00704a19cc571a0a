package token

import (
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Fixed storage keys for the token pair.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store holds the session's access/refresh token pair. The Session Manager
// is its only writer; the Resource Client only reads the access token.
// Both tokens are always written and cleared together.
type Store interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SetTokens(access, refresh string) error
	Clear() error
}

// Pair returns the stored tokens as an oauth2.Token, or nil when no access
// token is held. Expiry is never set: expiry is only discovered through a
// rejected request.
func Pair(s Store) (*oauth2.Token, error) {
	access, err := s.AccessToken()
	if err != nil {
		return nil, errors.Wrap(err, "[token.Pair] access token")
	}
	if access == "" {
		return nil, nil
	}
	refresh, err := s.RefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "[token.Pair] refresh token")
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}
