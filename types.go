package sokoni

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity.
type Identity interface {
	ID() string
	Email() string
	DisplayName() string
	Role() Role
}

// IdentityProvider resolves and verifies identities against the credential
// store.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// TokenService signs and validates bearer tokens.
type TokenService interface {
	Generate(identity Identity, ttl time.Duration) (string, error)
	Validate(raw string) (AuthClaims, error)
}

// Authenticator holds methods to deal with authentication.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, Identity, error)
	IssueLogin(identity Identity) (string, error)
	ServiceToken(identity Identity) (string, error)
	SessionFromToken(raw string) (AuthClaims, error)
}

type accountIdentity struct {
	id          string
	email       string
	displayName string
	role        Role
}

func (a accountIdentity) ID() string          { return a.id }
func (a accountIdentity) Email() string       { return a.email }
func (a accountIdentity) DisplayName() string { return a.displayName }
func (a accountIdentity) Role() Role          { return a.role }

var _ Identity = accountIdentity{}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SOKONI "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SOKONI "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SOKONI "+newline(format), args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SOKONI "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
