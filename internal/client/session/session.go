// Package session persists the access and refresh tokens of the signed-in user.
package session

import "errors"

// Storage keys of the two tokens.
const (
	AccessTokenKey  = "auth_token"
	RefreshTokenKey = "refresh_token"
)

// ErrNoToken is returned when the requested token is not stored.
var ErrNoToken = errors.New("token not found")

// Store holds the current session. Reads have no side effects.
type Store interface {
	AccessToken() (string, error)
	RefreshToken() (string, error)
	SetAccessToken(token string) error
	SetRefreshToken(token string) error
	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear() error
	// IsAuthenticated reports whether an access token is present.
	IsAuthenticated() bool
}
