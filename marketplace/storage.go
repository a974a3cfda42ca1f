package marketplace

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store is the persistence layer for listings and orders.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateListing(ctx context.Context, listing *Listing) (*Listing, error) {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}

	if _, err := s.db.NewInsert().
		Model(listing).
		Returning("*").
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create listing")
	}

	return listing, nil
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	listing := &Listing{}
	err := s.db.NewSelect().
		Model(listing).
		Relation("Seller").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrListingNotFound.WithMetadata(map[string]any{
				"listing_id": id.String(),
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load listing")
	}
	return listing, nil
}

// ListingFilter narrows ListListings. Zero values match everything.
type ListingFilter struct {
	SellerID   uuid.UUID
	Category   string
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

func (s *Store) ListListings(ctx context.Context, filter ListingFilter) ([]*Listing, error) {
	var listings []*Listing

	q := s.db.NewSelect().
		Model(&listings).
		Relation("Seller").
		Order("svc.created_at DESC")

	if filter.SellerID != uuid.Nil {
		q = q.Where("?TableAlias.seller_id = ?", filter.SellerID)
	}
	if filter.Category != "" {
		q = q.Where("?TableAlias.category = ?", filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.title LIKE ?", pattern).
				WhereOr("?TableAlias.description LIKE ?", pattern)
		})
	}
	if filter.ActiveOnly {
		q = q.Where("?TableAlias.is_active = ?", true)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list listings")
	}

	return listings, nil
}

// Categories returns the distinct categories of active listings.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.NewSelect().
		Model((*Listing)(nil)).
		ColumnExpr("DISTINCT category").
		Where("is_active = ?", true).
		Where("category <> ''").
		Order("category ASC").
		Scan(ctx, &categories)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list categories")
	}
	return categories, nil
}

func (s *Store) UpdateListing(ctx context.Context, listing *Listing) (*Listing, error) {
	now := time.Now()
	listing.UpdatedAt = &now

	res, err := s.db.NewUpdate().
		Model(listing).
		Column("title", "description", "category", "price", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update listing")
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, ErrListingNotFound.WithMetadata(map[string]any{
			"listing_id": listing.ID.String(),
		})
	}

	return listing, nil
}

func (s *Store) DeleteListing(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewDelete().
		Model((*Listing)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete listing")
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrListingNotFound.WithMetadata(map[string]any{
			"listing_id": id.String(),
		})
	}

	return nil
}

func (s *Store) CreateOrder(ctx context.Context, order *Order) (*Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = OrderPending
	}

	if _, err := s.db.NewInsert().
		Model(order).
		Returning("*").
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create order")
	}

	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	order := &Order{}
	err := s.db.NewSelect().
		Model(order).
		Relation("Listing").
		Relation("Buyer").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound.WithMetadata(map[string]any{
				"order_id": id.String(),
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load order")
	}
	return order, nil
}

func (s *Store) ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Order, error) {
	var orders []*Order
	err := s.db.NewSelect().
		Model(&orders).
		Relation("Listing").
		Where("?TableAlias.buyer_id = ?", buyerID).
		Order("ord.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list buyer orders")
	}
	return orders, nil
}

func (s *Store) ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID) ([]*Order, error) {
	var orders []*Order
	err := s.db.NewSelect().
		Model(&orders).
		Relation("Listing").
		Relation("Buyer").
		Join("JOIN services AS svc ON svc.id = ord.listing_id").
		Where("svc.seller_id = ?", sellerID).
		Order("ord.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list seller orders")
	}
	return orders, nil
}

// SetOrderStatus advances an order conditionally: the update only lands when
// the order still sits in one of the allowed source states, so two racing
// transitions cannot both win.
func (s *Store) SetOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus, from ...OrderStatus) (*Order, error) {
	res, err := s.db.NewUpdate().
		Model((*Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update order status")
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, ErrOrderClosed.WithMetadata(map[string]any{
			"order_id": id.String(),
			"status":   status,
		})
	}

	return s.GetOrder(ctx, id)
}
