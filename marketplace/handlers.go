package marketplace

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sokoni-dev/sokoni"
)

// Handlers exposes the catalog over fiber.
type Handlers struct {
	catalog *Catalog
}

func NewHandlers(catalog *Catalog) *Handlers {
	return &Handlers{catalog: catalog}
}

// RegisterRoutes mounts the marketplace surface. Browsing is public,
// everything else sits behind the auth middleware supplied by the caller.
func RegisterRoutes(app fiber.Router, h *Handlers, requireAuth fiber.Handler) {
	listings := app.Group("/listings")
	listings.Get("/", h.Browse)
	listings.Get("/categories", h.Categories)
	listings.Get("/mine", requireAuth, h.MyListings)
	listings.Get("/:id", h.GetListing)
	listings.Post("/", requireAuth, h.CreateListing)
	listings.Put("/:id", requireAuth, h.UpdateListing)
	listings.Delete("/:id", requireAuth, h.DeleteListing)

	orders := app.Group("/orders", requireAuth)
	orders.Post("/", h.PlaceOrder)
	orders.Get("/", h.MyOrders)
	orders.Get("/sales", h.MySales)
	orders.Get("/:id", h.GetOrder)
	orders.Patch("/:id/complete", h.CompleteOrder)
	orders.Patch("/:id/cancel", h.CancelOrder)
}

// ListingPayload is the create/update listing body.
type ListingPayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	IsActive    *bool   `json:"is_active"`
}

// Validate will run validation rules
func (r ListingPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.Price, validation.Required, validation.Min(0.0)),
	)
}

func (r ListingPayload) input() ListingInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return ListingInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		IsActive:    active,
	}
}

func paramID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id")
	}
	return id, nil
}

func (h *Handlers) Browse(c *fiber.Ctx) error {
	listings, err := h.catalog.Browse(c.Context(), BrowseQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    c.QueryInt("limit"),
		Offset:   c.QueryInt("offset"),
	})
	if err != nil {
		return sokoni.RenderError(c, err)
	}
	return c.JSON(fiber.Map{"listings": listings})
}

func (h *Handlers) Categories(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.Context())
	if err != nil {
		return sokoni.RenderError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return sokoni.RenderValidation(c, err)
	}

	listing, err := h.catalog.GetListing(c.Context(), id)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"listing": listing})
}

func (h *Handlers) MyListings(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	listings, err := h.catalog.MyListings(c.Context(), actor)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"listings": listings})
}

func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	payload := new(ListingPayload)
	if err := c.BodyParser(payload); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	listing, err := h.catalog.CreateListing(c.Context(), actor, payload.input())
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"listing": listing})
}

func (h *Handlers) UpdateListing(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	id, err := paramID(c)
	if err != nil {
		return sokoni.RenderValidation(c, err)
	}

	payload := new(ListingPayload)
	if err := c.BodyParser(payload); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	listing, err := h.catalog.UpdateListing(c.Context(), actor, id, payload.input())
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"listing": listing})
}

func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	id, err := paramID(c)
	if err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := h.catalog.DeleteListing(c.Context(), actor, id); err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// OrderPayload is the place-order body.
type OrderPayload struct {
	ListingID string `json:"listing_id"`
}

// Validate will run validation rules
func (r OrderPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ListingID, validation.Required),
	)
}

func (h *Handlers) PlaceOrder(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	payload := new(OrderPayload)
	if err := c.BodyParser(payload); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	if err := payload.Validate(); err != nil {
		return sokoni.RenderValidation(c, err)
	}

	listingID, err := uuid.Parse(payload.ListingID)
	if err != nil {
		return sokoni.RenderValidation(c, fmt.Errorf("invalid listing id"))
	}

	order, err := h.catalog.PlaceOrder(c.Context(), actor, listingID)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order": order})
}

func (h *Handlers) MyOrders(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	orders, err := h.catalog.MyOrders(c.Context(), actor)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func (h *Handlers) MySales(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	orders, err := h.catalog.MySales(c.Context(), actor)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func (h *Handlers) GetOrder(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	id, err := paramID(c)
	if err != nil {
		return sokoni.RenderValidation(c, err)
	}

	order, err := h.catalog.GetOrder(c.Context(), actor, id)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"order": order})
}

func (h *Handlers) CompleteOrder(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	id, err := paramID(c)
	if err != nil {
		return sokoni.RenderValidation(c, err)
	}

	order, err := h.catalog.CompleteOrder(c.Context(), actor, id)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"order": order})
}

func (h *Handlers) CancelOrder(c *fiber.Ctx) error {
	actor := sokoni.AccountFromCtx(c)
	if actor == nil {
		return sokoni.RenderError(c, sokoni.ErrInvalidCredentials)
	}

	id, err := paramID(c)
	if err != nil {
		return sokoni.RenderValidation(c, err)
	}

	order, err := h.catalog.CancelOrder(c.Context(), actor, id)
	if err != nil {
		return sokoni.RenderError(c, err)
	}

	return c.JSON(fiber.Map{"order": order})
}
