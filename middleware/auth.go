// Package middleware provides the fiber request guards that sit in front of
// the API: bearer-token authentication, role checks, and the approval gate.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/sokoni-dev/sokoni"
)

// RequireAuth validates the bearer token, loads the account it names, and
// stores it in the request locals. Suspended accounts are rejected here so
// a stale token stops working the moment the account is suspended.
func RequireAuth(tokens sokoni.TokenService, accounts sokoni.Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return sokoni.RenderError(c, sokoni.ErrInvalidCredentials.WithMetadata(map[string]any{
				"reason": "missing bearer token",
			}))
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			return sokoni.RenderError(c, err)
		}

		account, err := accounts.GetByID(c.Context(), claims.AccountID())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
			}
			return sokoni.RenderError(c, err)
		}

		if !account.IsActive {
			return sokoni.RenderError(c, sokoni.ErrAccountDeactivated)
		}

		c.Locals(sokoni.ContextKeyAccount, account)

		return c.Next()
	}
}

// RequireApproval blocks accounts still waiting on their elevation request.
func RequireApproval(guard sokoni.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := sokoni.AccountFromCtx(c)
		if account == nil {
			return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
		}

		if err := guard.ApprovalGate(account); err != nil {
			return sokoni.RenderError(c, err)
		}

		return c.Next()
	}
}

// RequireRole allows only the listed roles through. Use after RequireAuth.
func RequireRole(roles ...sokoni.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account := sokoni.AccountFromCtx(c)
		if account == nil {
			return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
		}

		for _, role := range roles {
			if account.Role == role {
				return c.Next()
			}
		}

		return sokoni.RenderError(c, sokoni.ErrInsufficientPermissions.WithMetadata(map[string]any{
			"role": account.Role,
		}))
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
