// Package marketplace implements the service catalog and orders: sellers
// publish listings, buyers place orders against them.
package marketplace

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sokoni-dev/sokoni"
)

// Listing is a service offered by a creator or service seller.
type Listing struct {
	bun.BaseModel `bun:"table:services,alias:svc" json:"-"`

	ID          uuid.UUID       `bun:"id,pk,notnull" json:"id"`
	SellerID    uuid.UUID       `bun:"seller_id,notnull" json:"seller_id"`
	Seller      *sokoni.Account `bun:"rel:belongs-to,join:seller_id=id" json:"seller,omitempty"`
	Title       string          `bun:"title,notnull" json:"title"`
	Description string          `bun:"description" json:"description"`
	Category    string          `bun:"category" json:"category"`
	Price       float64         `bun:"price,notnull" json:"price"`
	IsActive    bool            `bun:"is_active,default:true" json:"is_active"`

	CreatedAt *time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt *time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// OrderStatus tracks an order through its life. An order starts pending,
// becomes paid when the payment callback lands, and ends completed or
// cancelled.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Open reports whether the order can still change state.
func (s OrderStatus) Open() bool {
	return s == OrderPending || s == OrderPaid
}

// Order is a buyer's purchase of a listing. Amount is captured at order time
// so later price edits don't change what the buyer owes.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord" json:"-"`

	ID        uuid.UUID       `bun:"id,pk,notnull" json:"id"`
	ListingID uuid.UUID       `bun:"listing_id,notnull" json:"listing_id"`
	Listing   *Listing        `bun:"rel:belongs-to,join:listing_id=id" json:"listing,omitempty"`
	BuyerID   uuid.UUID       `bun:"buyer_id,notnull" json:"buyer_id"`
	Buyer     *sokoni.Account `bun:"rel:belongs-to,join:buyer_id=id" json:"buyer,omitempty"`
	Amount    float64         `bun:"amount,notnull" json:"amount"`
	Status    OrderStatus     `bun:"status,notnull,default:'pending'" json:"status"`

	CreatedAt *time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt *time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
