package sokoni

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// ContextKeyAccount is the fiber locals key the auth middleware stores the
// authenticated *Account under.
const ContextKeyAccount = "sokoni:account"

// AccountFromCtx returns the authenticated account placed in the request
// context by the auth middleware, or nil for anonymous requests.
func AccountFromCtx(c *fiber.Ctx) *Account {
	account, ok := c.Locals(ContextKeyAccount).(*Account)
	if !ok {
		return nil
	}
	return account
}

type errorBody struct {
	Error           string         `json:"error"`
	TextCode        string         `json:"text_code,omitempty"`
	Category        string         `json:"category,omitempty"`
	PendingApproval bool           `json:"pending_approval,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// RenderError maps a domain error onto an HTTP response. Rich errors carry
// their own status code; anything else is a 500 with a generic body so
// internals never leak to the client.
func RenderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{
			Error: "internal server error",
		})
	}

	status := int(richErr.Code)
	if status < fiber.StatusBadRequest || status > 599 {
		status = fiber.StatusInternalServerError
	}

	body := errorBody{
		Error:    richErr.Message,
		TextCode: richErr.TextCode,
		Category: string(richErr.Category),
	}

	if goerrors.Is(err, ErrPendingApproval) {
		body.PendingApproval = true
	}

	if richErr.Category == goerrors.CategoryValidation && richErr.Metadata != nil {
		body.Meta = richErr.Metadata
	}

	return c.Status(status).JSON(body)
}

// RenderValidation wraps ozzo validation output as a 400 keyed by field.
func RenderValidation(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody{
		Error:    err.Error(),
		TextCode: TextCodeValidation,
		Category: string(goerrors.CategoryValidation),
	})
}
