package payments

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sokoni-dev/sokoni"
)

// Handlers exposes the payments surface over fiber.
type Handlers struct {
	service *Service
	logger  sokoni.Logger
}

func NewHandlers(service *Service, logger sokoni.Logger) *Handlers {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Handlers{service: service, logger: logger}
}

// RegisterRoutes mounts the payment endpoints. The callback is public by
// necessity: Daraja posts to it without our tokens.
func RegisterRoutes(app fiber.Router, h *Handlers, requireAuth fiber.Handler) {
	payments := app.Group("/payments")
	payments.Post("/callback", h.Callback)
	payments.Post("/stk", requireAuth, h.InitiateSTK)
	payments.Get("/status/:checkoutID", requireAuth, h.Status)
	payments.Get("/earnings", requireAuth, h.Earnings)
	payments.Get("/payout-account", requireAuth, h.GetPayoutAccount)
	payments.Post("/payout-account", requireAuth, h.SavePayoutAccount)
	payments.Post("/withdraw", requireAuth, h.Withdraw)
	payments.Get("/commission", requireAuth, h.Commission)
}

// STKPayload starts payment collection on an order.
type STKPayload struct {
	OrderID string `json:"order_id"`
	Phone   string `json:"phone"`
}

// Validate will run validation rules
func (r STKPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID, validation.Required),
		validation.Field(&r.Phone, validation.Required, validation.Length(9, 15)),
	)
}

func (h *Handlers) InitiateSTK(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	payload := new(STKPayload)
	if err := c.BodyParser(payload); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return sokoni.RenderValidation(c, fmt.Errorf("invalid order id"))
	}

	payment, err := h.service.InitiateSTK(c.Context(), actor, orderID, payload.Phone)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"payment": payment})
}

// Callback receives the asynchronous Daraja result. It always answers 200
// with the acknowledgement shape Daraja expects; failures are logged, not
// surfaced, because Daraja retries on anything else.
func (h *Handlers) Callback(c *fiber.Ctx) error {
	cb := new(STKCallback)
	if err := c.BodyParser(cb); err != nil {
		h.logger.Error("mpesa callback parse failed", "error", err)
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	if err := h.service.HandleCallback(c.Context(), cb); err != nil {
		h.logger.Error("mpesa callback handling failed",
			"checkout_request_id", cb.Body.StkCallback.CheckoutRequestID,
			"error", err,
		)
	}

	return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *Handlers) Status(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	checkoutID := c.Params("checkoutID")
	if checkoutID == "" {
		return sokoni.RenderValidation(c, fmt.Errorf("missing checkout request id"))
	}

	payment, err := h.service.PaymentStatus(c.Context(), actor, checkoutID)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"payment": payment})
}

func (h *Handlers) GetPayoutAccount(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	payout, err := h.service.PayoutAccountFor(c.Context(), actor)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"payout_account": payout})
}

func (h *Handlers) Earnings(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	balance, txns, err := h.service.Earnings(c.Context(), actor)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{
		"balance":      balance,
		"transactions": txns,
	})
}

// PayoutAccountPayload sets the withdrawal destination.
type PayoutAccountPayload struct {
	Phone string `json:"phone"`
}

// Validate will run validation rules
func (r PayoutAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.Length(9, 15)),
	)
}

func (h *Handlers) SavePayoutAccount(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	payload := new(PayoutAccountPayload)
	if err := c.BodyParser(payload); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	payout, err := h.service.SavePayoutAccount(c.Context(), actor, payload.Phone)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"payout_account": payout})
}

// WithdrawPayload requests a payout from the actor's balance.
type WithdrawPayload struct {
	Amount float64 `json:"amount"`
}

// Validate will run validation rules
func (r WithdrawPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Required, validation.Min(1.0)),
	)
}

func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	payload := new(WithdrawPayload)
	if err := c.BodyParser(payload); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	txn, err := h.service.Withdraw(c.Context(), actor, payload.Amount)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"withdrawal": txn})
}

func (h *Handlers) Commission(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	total, err := h.service.CommissionTotal(c.Context(), actor)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"commission": total})
}
