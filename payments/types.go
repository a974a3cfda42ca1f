package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/sokoni-dev/sokoni"
	"github.com/sokoni-dev/sokoni/marketplace"
)

// PaymentStatus follows a payment from the STK push to the callback result.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records one STK push attempt against an order. Commission and
// NetAmount are computed at initiation so the split is fixed even if the
// platform rate changes before the callback lands.
type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:pay" json:"-"`

	ID        uuid.UUID          `bun:"id,pk,notnull" json:"id"`
	OrderID   uuid.UUID          `bun:"order_id,notnull" json:"order_id"`
	Order     *marketplace.Order `bun:"rel:belongs-to,join:order_id=id" json:"order,omitempty"`
	AccountID uuid.UUID          `bun:"account_id,notnull" json:"account_id"`
	Phone     string             `bun:"phone,notnull" json:"phone"`

	Amount     float64 `bun:"amount,notnull" json:"amount"`
	Commission float64 `bun:"commission,notnull" json:"commission"`
	NetAmount  float64 `bun:"net_amount,notnull" json:"net_amount"`

	MerchantRequestID string        `bun:"merchant_request_id" json:"merchant_request_id"`
	CheckoutRequestID string        `bun:"checkout_request_id,unique" json:"checkout_request_id"`
	MpesaReceipt      string        `bun:"mpesa_receipt" json:"mpesa_receipt,omitempty"`
	Status            PaymentStatus `bun:"status,notnull,default:'pending'" json:"status"`
	FailureReason     string        `bun:"failure_reason" json:"failure_reason,omitempty"`

	CreatedAt *time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt *time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// TransactionKind tags ledger entries.
type TransactionKind string

const (
	TransactionEarning    TransactionKind = "earning"
	TransactionCommission TransactionKind = "commission"
	TransactionWithdrawal TransactionKind = "withdrawal"
)

// PlatformAccountID is the ledger account holding the platform's commission
// entries; it never corresponds to a registered account.
var PlatformAccountID = uuid.Nil

// Transaction is a ledger entry on an account: earnings credit sellers,
// commissions credit the platform, withdrawals debit sellers.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:txn" json:"-"`

	ID        uuid.UUID       `bun:"id,pk,notnull" json:"id"`
	AccountID uuid.UUID       `bun:"account_id,notnull" json:"account_id"`
	Account   *sokoni.Account `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Kind      TransactionKind `bun:"kind,notnull" json:"kind"`
	Amount    float64         `bun:"amount,notnull" json:"amount"`
	Reference string          `bun:"reference" json:"reference"`
	Status    string          `bun:"status,notnull,default:'completed'" json:"status"`

	CreatedAt *time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// PayoutAccount is where a seller receives withdrawals. One per account, the
// phone number stored normalized to E.164 digits.
type PayoutAccount struct {
	bun.BaseModel `bun:"table:payout_accounts,alias:pyt" json:"-"`

	ID        uuid.UUID `bun:"id,pk,notnull" json:"id"`
	AccountID uuid.UUID `bun:"account_id,notnull,unique" json:"account_id"`
	Phone     string    `bun:"phone,notnull" json:"phone"`
	Provider  string    `bun:"provider,notnull,default:'mpesa'" json:"provider"`

	CreatedAt *time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt *time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
