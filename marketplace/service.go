package marketplace

import (
	"context"

	"github.com/google/uuid"

	"github.com/sokoni-dev/sokoni"
)

// Catalog is the marketplace service layer. Listings can only be touched by
// approved sellers; a listing's owner, an admin, or the CEO may modify it.
type Catalog struct {
	store  *Store
	guard  sokoni.Guard
	logger sokoni.Logger
}

type CatalogOption func(*Catalog)

func WithCatalogLogger(l sokoni.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCatalog(store *Store, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		store:  store,
		guard:  sokoni.NewGuard(),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// canModify lets the owner, an admin, or the CEO touch a listing.
func canModify(actor *sokoni.Account, ownerID uuid.UUID) bool {
	if actor.ID == ownerID {
		return true
	}
	return actor.Role == sokoni.RoleAdmin || actor.Role == sokoni.RoleCEO
}

// ListingInput carries the seller-editable listing fields.
type ListingInput struct {
	Title       string
	Description string
	Category    string
	Price       float64
	IsActive    bool
}

func (c *Catalog) CreateListing(ctx context.Context, actor *sokoni.Account, input ListingInput) (*Listing, error) {
	if err := c.guard.Authorize(actor, sokoni.OpManageListings, nil); err != nil {
		return nil, err
	}
	if err := c.guard.ApprovalGate(actor); err != nil {
		return nil, err
	}

	listing, err := c.store.CreateListing(ctx, &Listing{
		SellerID:    actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		IsActive:    true,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("listing created",
		"listing_id", listing.ID.String(),
		"seller_id", actor.ID.String(),
	)

	return listing, nil
}

func (c *Catalog) UpdateListing(ctx context.Context, actor *sokoni.Account, id uuid.UUID, input ListingInput) (*Listing, error) {
	listing, err := c.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canModify(actor, listing.SellerID) {
		return nil, ErrNotOwner.WithMetadata(map[string]any{
			"listing_id": id.String(),
		})
	}

	listing.Title = input.Title
	listing.Description = input.Description
	listing.Category = input.Category
	listing.Price = input.Price
	listing.IsActive = input.IsActive

	return c.store.UpdateListing(ctx, listing)
}

func (c *Catalog) DeleteListing(ctx context.Context, actor *sokoni.Account, id uuid.UUID) error {
	listing, err := c.store.GetListing(ctx, id)
	if err != nil {
		return err
	}

	if !canModify(actor, listing.SellerID) {
		return ErrNotOwner.WithMetadata(map[string]any{
			"listing_id": id.String(),
		})
	}

	return c.store.DeleteListing(ctx, listing.ID)
}

func (c *Catalog) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return c.store.GetListing(ctx, id)
}

// BrowseQuery narrows the public catalog view.
type BrowseQuery struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

// Browse returns active listings; the catalog is public.
func (c *Catalog) Browse(ctx context.Context, query BrowseQuery) ([]*Listing, error) {
	return c.store.ListListings(ctx, ListingFilter{
		Category:   query.Category,
		Search:     query.Search,
		ActiveOnly: true,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
}

// Categories returns the distinct categories currently on offer.
func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	return c.store.Categories(ctx)
}

// MyListings returns every listing the actor owns, active or not.
func (c *Catalog) MyListings(ctx context.Context, actor *sokoni.Account) ([]*Listing, error) {
	return c.store.ListListings(ctx, ListingFilter{SellerID: actor.ID})
}

// PlaceOrder creates a pending order for a listing. Any active account may
// buy; the amount is the listing price at order time.
func (c *Catalog) PlaceOrder(ctx context.Context, actor *sokoni.Account, listingID uuid.UUID) (*Order, error) {
	listing, err := c.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if !listing.IsActive {
		return nil, ErrListingInactive.WithMetadata(map[string]any{
			"listing_id": listingID.String(),
		})
	}

	order, err := c.store.CreateOrder(ctx, &Order{
		ListingID: listing.ID,
		BuyerID:   actor.ID,
		Amount:    listing.Price,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("order placed",
		"order_id", order.ID.String(),
		"listing_id", listing.ID.String(),
		"buyer_id", actor.ID.String(),
	)

	return order, nil
}

// GetOrder returns the order when the actor is its buyer, the listing's
// seller, an admin, or the CEO.
func (c *Catalog) GetOrder(ctx context.Context, actor *sokoni.Account, id uuid.UUID) (*Order, error) {
	order, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.BuyerID != actor.ID &&
		(order.Listing == nil || order.Listing.SellerID != actor.ID) &&
		!canModify(actor, uuid.Nil) {
		return nil, ErrNotOwner.WithMetadata(map[string]any{
			"order_id": id.String(),
		})
	}

	return order, nil
}

func (c *Catalog) MyOrders(ctx context.Context, actor *sokoni.Account) ([]*Order, error) {
	return c.store.ListOrdersForBuyer(ctx, actor.ID)
}

func (c *Catalog) MySales(ctx context.Context, actor *sokoni.Account) ([]*Order, error) {
	return c.store.ListOrdersForSeller(ctx, actor.ID)
}

// CompleteOrder is the seller marking a paid order fulfilled.
func (c *Catalog) CompleteOrder(ctx context.Context, actor *sokoni.Account, id uuid.UUID) (*Order, error) {
	order, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Listing == nil || !canModify(actor, order.Listing.SellerID) {
		return nil, ErrNotOwner.WithMetadata(map[string]any{
			"order_id": id.String(),
		})
	}

	return c.store.SetOrderStatus(ctx, id, OrderCompleted, OrderPaid)
}

// CancelOrder lets the buyer or the seller back out of an open order.
func (c *Catalog) CancelOrder(ctx context.Context, actor *sokoni.Account, id uuid.UUID) (*Order, error) {
	order, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	seller := order.Listing != nil && order.Listing.SellerID == actor.ID
	if order.BuyerID != actor.ID && !seller && !canModify(actor, uuid.Nil) {
		return nil, ErrNotOwner.WithMetadata(map[string]any{
			"order_id": id.String(),
		})
	}

	return c.store.SetOrderStatus(ctx, id, OrderCancelled, OrderPending, OrderPaid)
}

// MarkOrderPaid is called by the payments callback when money lands.
func (c *Catalog) MarkOrderPaid(ctx context.Context, id uuid.UUID) (*Order, error) {
	return c.store.SetOrderStatus(ctx, id, OrderPaid, OrderPending)
}
