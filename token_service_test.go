package sokoni_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoni-dev/sokoni"
)

func testIdentity() sokoni.Identity {
	account := &sokoni.Account{
		ID:       uuid.New(),
		Email:    "person@example.com",
		FullName: "Test Person",
		Role:     sokoni.RoleCreator,
	}
	return account.Identity()
}

func TestTokenRoundTrip(t *testing.T) {
	svc := sokoni.NewTokenService([]byte("test-signing-key"), "sokoni", nil)
	identity := testIdentity()

	token, err := svc.Generate(identity, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.ID(), claims.AccountID())
	assert.Equal(t, "person@example.com", claims.Email())
	assert.Equal(t, sokoni.RoleCreator, claims.Role())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expires(), 5*time.Second)
}

func TestTokenExpired(t *testing.T) {
	svc := sokoni.NewTokenService([]byte("test-signing-key"), "sokoni", nil)

	token, err := svc.Generate(testIdentity(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, sokoni.ErrTokenExpired)
}

func TestTokenTampered(t *testing.T) {
	svc := sokoni.NewTokenService([]byte("test-signing-key"), "sokoni", nil)

	token, err := svc.Generate(testIdentity(), time.Hour)
	require.NoError(t, err)

	_, err = svc.Validate(token + "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sokoni.ErrTokenExpired)
}

func TestTokenWrongKeyRejected(t *testing.T) {
	issuer := sokoni.NewTokenService([]byte("key-one"), "sokoni", nil)
	verifier := sokoni.NewTokenService([]byte("key-two"), "sokoni", nil)

	token, err := issuer.Generate(testIdentity(), time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestTokenWrongIssuerRejected(t *testing.T) {
	issuer := sokoni.NewTokenService([]byte("test-signing-key"), "someone-else", nil)
	verifier := sokoni.NewTokenService([]byte("test-signing-key"), "sokoni", nil)

	token, err := issuer.Generate(testIdentity(), time.Hour)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestLoginAndServiceTokensCoexist(t *testing.T) {
	cfg := sokoni.Config{
		SigningKey:      "test-signing-key",
		Issuer:          "sokoni",
		LoginTokenTTL:   168 * time.Hour,
		ServiceTokenTTL: time.Hour,
	}

	repo := newTestRepo(t)
	auther := sokoni.NewAuthenticator(sokoni.NewAccountProvider(repo.Accounts()), cfg)

	identity := testIdentity()

	login, err := auther.IssueLogin(identity)
	require.NoError(t, err)
	service, err := auther.ServiceToken(identity)
	require.NoError(t, err)

	loginClaims, err := auther.SessionFromToken(login)
	require.NoError(t, err)
	serviceClaims, err := auther.SessionFromToken(service)
	require.NoError(t, err)

	// both validate independently, only the lifetime differs
	assert.Equal(t, loginClaims.AccountID(), serviceClaims.AccountID())
	assert.True(t, loginClaims.Expires().After(serviceClaims.Expires()))
}
