package middleware_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sokoni-dev/sokoni"
	"github.com/sokoni-dev/sokoni/middleware"
)

func newTestRepo(t *testing.T) sokoni.RepositoryManager {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*sokoni.Account)(nil),
		(*sokoni.Approval)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })

	return sokoni.NewRepositoryManager(db)
}

func newProtectedApp(t *testing.T, repo sokoni.RepositoryManager, tokens sokoni.TokenService) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Get("/whoami",
		middleware.RequireAuth(tokens, repo.Accounts()),
		func(c *fiber.Ctx) error {
			account := sokoni.AccountFromCtx(c)
			return c.JSON(fiber.Map{"email": account.Email})
		},
	)
	app.Get("/gated",
		middleware.RequireAuth(tokens, repo.Accounts()),
		middleware.RequireApproval(sokoni.NewGuard()),
		func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
	)

	return app
}

func register(t *testing.T, repo sokoni.RepositoryManager, email string, role sokoni.Role) *sokoni.Account {
	t.Helper()

	account, err := sokoni.NewRegisterAccountHandler(repo).Execute(context.Background(), sokoni.RegisterAccountMessage{
		Email:    email,
		Password: "secret-pass",
		FullName: "Test Person",
		Role:     string(role),
	})
	require.NoError(t, err)

	return account
}

func TestRequireAuth(t *testing.T) {
	repo := newTestRepo(t)
	tokens := sokoni.NewTokenService([]byte("test-signing-key"), "sokoni", nil)
	app := newProtectedApp(t, repo, tokens)

	account := register(t, repo, "buyer@example.com", sokoni.RolePublic)

	token, err := tokens.Generate(account.Identity(), time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Token "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("valid token loads the account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		body := map[string]any{}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, "buyer@example.com", body["email"])
	})

	t.Run("expired token", func(t *testing.T) {
		stale, err := tokens.Generate(account.Identity(), -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+stale)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("suspended account rejected despite valid token", func(t *testing.T) {
		_, err := repo.Accounts().SetActive(context.Background(), account.ID, false)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})
}

func TestRequireApproval(t *testing.T) {
	repo := newTestRepo(t)
	tokens := sokoni.NewTokenService([]byte("test-signing-key"), "sokoni", nil)
	app := newProtectedApp(t, repo, tokens)

	creator := register(t, repo, "creator@example.com", sokoni.RoleCreator)
	token, err := tokens.Generate(creator.Identity(), time.Hour)
	require.NoError(t, err)

	t.Run("pending account blocked with distinct body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/gated", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		body := map[string]any{}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Equal(t, true, body["pending_approval"])
	})

	t.Run("buyer passes the gate", func(t *testing.T) {
		buyer := register(t, repo, "buyer@example.com", sokoni.RolePublic)
		buyerToken, err := tokens.Generate(buyer.Identity(), time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/gated", nil)
		req.Header.Set("Authorization", "Bearer "+buyerToken)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}
