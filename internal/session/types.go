// Package session holds the signed-in user's token and email, persisted in a
// storage.KV and exposed as observable state.
package session

import (
	"context"
	"errors"

	"github.com/csvstats/csvstats/internal/api"
)

// Storage keys. Both are present or both are absent.
const (
	TokenKey = "csvStats.jwt"
	EmailKey = "csvStats.email"
)

// User-facing login messages.
const (
	MsgCredentialsRequired = "Email and password are required."
	MsgLoginFailed         = "Unable to sign in. Please try again."
)

// ErrCredentialsRequired is returned when email or password is empty.
var ErrCredentialsRequired = errors.New("email and password are required")

// Session is the signed-in identity. The zero value means signed out.
type Session struct {
	Token string
	Email string
}

// SignedIn reports whether the session carries a token.
func (s Session) SignedIn() bool {
	return s.Token != ""
}

// Authenticator exchanges credentials for a token. *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
}
