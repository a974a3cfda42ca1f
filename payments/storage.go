package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store persists payments, the transaction ledger, and payout accounts.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreatePayment(ctx context.Context, payment *Payment) (*Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.Status == "" {
		payment.Status = PaymentPending
	}

	if _, err := s.db.NewInsert().
		Model(payment).
		Returning("*").
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create payment")
	}

	return payment, nil
}

func (s *Store) GetPaymentByCheckoutID(ctx context.Context, checkoutID string) (*Payment, error) {
	payment := &Payment{}
	err := s.db.NewSelect().
		Model(payment).
		Relation("Order").
		Where("?TableAlias.checkout_request_id = ?", checkoutID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound.WithMetadata(map[string]any{
				"checkout_request_id": checkoutID,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load payment")
	}
	return payment, nil
}

// SettlePayment records the callback result. The update is conditional on
// the payment still being pending so a replayed callback cannot settle the
// same payment twice.
func (s *Store) SettlePayment(ctx context.Context, id uuid.UUID, status PaymentStatus, receipt, failureReason string) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*Payment)(nil)).
		Set("status = ?", status).
		Set("mpesa_receipt = ?", receipt).
		Set("failure_reason = ?", failureReason).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", PaymentPending).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to settle payment")
	}

	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func (s *Store) CreateTransaction(ctx context.Context, txn *Transaction) (*Transaction, error) {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.Status == "" {
		txn.Status = "completed"
	}

	if _, err := s.db.NewInsert().
		Model(txn).
		Returning("*").
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create transaction")
	}

	return txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*Transaction, error) {
	var txns []*Transaction
	err := s.db.NewSelect().
		Model(&txns).
		Where("?TableAlias.account_id = ?", accountID).
		Order("txn.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list transactions")
	}
	return txns, nil
}

// Balance is earnings minus withdrawals for one account. Pending
// withdrawals count against the balance so a seller can't double-spend
// while a payout is in flight.
func (s *Store) Balance(ctx context.Context, accountID uuid.UUID) (float64, error) {
	var rows []struct {
		Kind  TransactionKind `bun:"kind"`
		Total float64         `bun:"total"`
	}

	err := s.db.NewSelect().
		Model((*Transaction)(nil)).
		Column("kind").
		ColumnExpr("SUM(amount) AS total").
		Where("account_id = ?", accountID).
		Where("kind IN (?)", bun.In([]TransactionKind{TransactionEarning, TransactionWithdrawal})).
		Group("kind").
		Scan(ctx, &rows)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compute balance")
	}

	var balance float64
	for _, row := range rows {
		switch row.Kind {
		case TransactionEarning:
			balance += row.Total
		case TransactionWithdrawal:
			balance -= row.Total
		}
	}

	return balance, nil
}

// CommissionTotal sums the platform's cut across all settled payments.
func (s *Store) CommissionTotal(ctx context.Context) (float64, error) {
	var total sql.NullFloat64
	err := s.db.NewSelect().
		Model((*Payment)(nil)).
		ColumnExpr("SUM(commission)").
		Where("status = ?", PaymentCompleted).
		Scan(ctx, &total)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compute commission total")
	}
	return total.Float64, nil
}

func (s *Store) GetPayoutAccount(ctx context.Context, accountID uuid.UUID) (*PayoutAccount, error) {
	payout := &PayoutAccount{}
	err := s.db.NewSelect().
		Model(payout).
		Where("?TableAlias.account_id = ?", accountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPayoutAccount.WithMetadata(map[string]any{
				"account_id": accountID.String(),
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load payout account")
	}
	return payout, nil
}

// SavePayoutAccount inserts or replaces the account's payout destination.
func (s *Store) SavePayoutAccount(ctx context.Context, payout *PayoutAccount) (*PayoutAccount, error) {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}

	now := time.Now()
	payout.UpdatedAt = &now

	if _, err := s.db.NewInsert().
		Model(payout).
		On("CONFLICT (account_id) DO UPDATE").
		Set("phone = EXCLUDED.phone").
		Set("provider = EXCLUDED.provider").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save payout account")
	}

	return payout, nil
}
