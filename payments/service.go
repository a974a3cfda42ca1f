package payments

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/sokoni-dev/sokoni"
	"github.com/sokoni-dev/sokoni/marketplace"
)

// defaultRegion for phone number parsing when the caller omits the country
// prefix.
const defaultRegion = "KE"

// Gateway is the slice of MpesaClient the service needs, an interface so
// tests can stub the network.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount float64, reference, description string) (*STKPushResponse, error)
	B2C(ctx context.Context, phone string, amount float64, remarks string) (*B2CResponse, error)
}

// Service wires payments to orders: it initiates STK pushes, settles
// callbacks, keeps the seller ledger, and runs B2C payouts.
type Service struct {
	store   *Store
	gateway Gateway
	catalog *marketplace.Catalog
	guard   sokoni.Guard
	logger  sokoni.Logger
	rate    float64
}

type ServiceOption func(*Service)

func WithServiceLogger(l sokoni.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(store *Store, gateway Gateway, catalog *marketplace.Catalog, commissionRate float64, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		gateway: gateway,
		catalog: catalog,
		guard:   sokoni.NewGuard(),
		logger:  noopLogger{},
		rate:    commissionRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NormalizePhone parses the number against the Kenyan region and returns it
// as digits with country code, the 2547XXXXXXXX form Daraja wants.
func NormalizePhone(raw string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidPhone.WithMetadata(map[string]any{
			"phone": raw,
		})
	}

	e164 := phonenumbers.Format(parsed, phonenumbers.E164)
	return strings.TrimPrefix(e164, "+"), nil
}

// InitiateSTK starts payment collection for one of the actor's orders. The
// commission split is computed and stored up front.
func (s *Service) InitiateSTK(ctx context.Context, actor *sokoni.Account, orderID uuid.UUID, phone string) (*Payment, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	order, err := s.catalog.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != marketplace.OrderPending {
		return nil, marketplace.ErrOrderClosed.WithMetadata(map[string]any{
			"order_id": orderID.String(),
			"status":   order.Status,
		})
	}

	commission := order.Amount * s.rate

	res, err := s.gateway.STKPush(ctx, normalized, order.Amount,
		fmt.Sprintf("ORD-%s", shortID(order.ID)), "Sokoni order payment")
	if err != nil {
		return nil, err
	}

	payment, err := s.store.CreatePayment(ctx, &Payment{
		OrderID:           order.ID,
		AccountID:         actor.ID,
		Phone:             normalized,
		Amount:            order.Amount,
		Commission:        commission,
		NetAmount:         order.Amount - commission,
		MerchantRequestID: res.MerchantRequestID,
		CheckoutRequestID: res.CheckoutRequestID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stk push initiated",
		"payment_id", payment.ID.String(),
		"order_id", order.ID.String(),
		"amount", order.Amount,
	)

	return payment, nil
}

// HandleCallback settles a payment from the asynchronous Daraja result. On
// success the order flips to paid and the ledger gets the seller's earning
// and the platform's commission. A replayed callback is a no-op.
func (s *Service) HandleCallback(ctx context.Context, cb *STKCallback) error {
	body := cb.Body.StkCallback

	payment, err := s.store.GetPaymentByCheckoutID(ctx, body.CheckoutRequestID)
	if err != nil {
		return err
	}

	if body.ResultCode != 0 {
		settled, err := s.store.SettlePayment(ctx, payment.ID, PaymentFailed, "", body.ResultDesc)
		if err != nil {
			return err
		}
		if settled {
			s.logger.Warn("payment failed",
				"payment_id", payment.ID.String(),
				"result_code", body.ResultCode,
				"reason", body.ResultDesc,
			)
		}
		return nil
	}

	settled, err := s.store.SettlePayment(ctx, payment.ID, PaymentCompleted, cb.Receipt(), "")
	if err != nil {
		return err
	}
	if !settled {
		// replayed callback, already settled
		return nil
	}

	order, err := s.catalog.MarkOrderPaid(ctx, payment.OrderID)
	if err != nil {
		s.logger.Error("payment settled but order update failed",
			"payment_id", payment.ID.String(),
			"order_id", payment.OrderID.String(),
			"error", err,
		)
		return err
	}

	if order.Listing != nil {
		if _, err := s.store.CreateTransaction(ctx, &Transaction{
			AccountID: order.Listing.SellerID,
			Kind:      TransactionEarning,
			Amount:    payment.NetAmount,
			Reference: cb.Receipt(),
		}); err != nil {
			return err
		}
	}

	// the platform's cut is booked against the zero account, not the buyer
	if _, err := s.store.CreateTransaction(ctx, &Transaction{
		AccountID: PlatformAccountID,
		Kind:      TransactionCommission,
		Amount:    payment.Commission,
		Reference: cb.Receipt(),
	}); err != nil {
		return err
	}

	s.logger.Info("payment completed",
		"payment_id", payment.ID.String(),
		"order_id", payment.OrderID.String(),
		"receipt", cb.Receipt(),
	)

	return nil
}

// PaymentStatus looks up a payment by its checkout request id. Only the
// payer, an admin, or the CEO may read it.
func (s *Service) PaymentStatus(ctx context.Context, actor *sokoni.Account, checkoutID string) (*Payment, error) {
	payment, err := s.store.GetPaymentByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	if payment.AccountID != actor.ID &&
		actor.Role != sokoni.RoleAdmin && actor.Role != sokoni.RoleCEO {
		return nil, sokoni.ErrInsufficientPermissions.WithMetadata(map[string]any{
			"checkout_request_id": checkoutID,
		})
	}

	return payment, nil
}

// PayoutAccountFor returns the actor's payout destination.
func (s *Service) PayoutAccountFor(ctx context.Context, actor *sokoni.Account) (*PayoutAccount, error) {
	return s.store.GetPayoutAccount(ctx, actor.ID)
}

// SavePayoutAccount sets where the actor receives withdrawals.
func (s *Service) SavePayoutAccount(ctx context.Context, actor *sokoni.Account, phone string) (*PayoutAccount, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	return s.store.SavePayoutAccount(ctx, &PayoutAccount{
		AccountID: actor.ID,
		Phone:     normalized,
		Provider:  "mpesa",
	})
}

// Withdraw pays out part of the actor's balance over B2C and books a
// withdrawal against the ledger.
func (s *Service) Withdraw(ctx context.Context, actor *sokoni.Account, amount float64) (*Transaction, error) {
	if amount <= 0 {
		return nil, goerrors.New("withdrawal amount must be positive", goerrors.CategoryValidation).
			WithTextCode("VALIDATION_ERROR").
			WithCode(goerrors.CodeBadRequest)
	}

	payout, err := s.store.GetPayoutAccount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	balance, err := s.store.Balance(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if balance < amount {
		return nil, ErrInsufficientBalance.WithMetadata(map[string]any{
			"balance":   balance,
			"requested": amount,
		})
	}

	res, err := s.gateway.B2C(ctx, payout.Phone, amount, "Sokoni seller withdrawal")
	if err != nil {
		return nil, err
	}

	txn, err := s.store.CreateTransaction(ctx, &Transaction{
		AccountID: actor.ID,
		Kind:      TransactionWithdrawal,
		Amount:    amount,
		Reference: res.ConversationID,
		Status:    "pending",
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal initiated",
		"account_id", actor.ID.String(),
		"amount", amount,
		"conversation_id", res.ConversationID,
	)

	return txn, nil
}

// Earnings returns the actor's balance and ledger history.
func (s *Service) Earnings(ctx context.Context, actor *sokoni.Account) (float64, []*Transaction, error) {
	balance, err := s.store.Balance(ctx, actor.ID)
	if err != nil {
		return 0, nil, err
	}

	txns, err := s.store.ListTransactions(ctx, actor.ID)
	if err != nil {
		return 0, nil, err
	}

	return balance, txns, nil
}

// CommissionTotal reports the platform's cut; admin and CEO only.
func (s *Service) CommissionTotal(ctx context.Context, actor *sokoni.Account) (float64, error) {
	if err := s.guard.Authorize(actor, sokoni.OpManageSettings, nil); err != nil {
		return 0, err
	}
	return s.store.CommissionTotal(ctx)
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return strings.ToUpper(s[:8])
}
