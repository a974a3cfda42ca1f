package payments_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sokoni-dev/sokoni"
	"github.com/sokoni-dev/sokoni/marketplace"
	"github.com/sokoni-dev/sokoni/payments"
)

// MockGateway implements payments.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) STKPush(ctx context.Context, phone string, amount float64, reference, description string) (*payments.STKPushResponse, error) {
	args := m.Called(ctx, phone, amount, reference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.STKPushResponse), args.Error(1)
}

func (m *MockGateway) B2C(ctx context.Context, phone string, amount float64, remarks string) (*payments.B2CResponse, error) {
	args := m.Called(ctx, phone, amount, remarks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.B2CResponse), args.Error(1)
}

type fixture struct {
	db      *bun.DB
	catalog *marketplace.Catalog
	service *payments.Service
	gateway *MockGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*sokoni.Account)(nil),
		(*marketplace.Listing)(nil),
		(*marketplace.Order)(nil),
		(*payments.Payment)(nil),
		(*payments.Transaction)(nil),
		(*payments.PayoutAccount)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })

	catalog := marketplace.NewCatalog(marketplace.NewStore(db))
	gateway := &MockGateway{}
	service := payments.NewService(payments.NewStore(db), gateway, catalog, 0.20)

	return &fixture{db: db, catalog: catalog, service: service, gateway: gateway}
}

func seedAccountIn(t *testing.T, db *bun.DB, role sokoni.Role) *sokoni.Account {
	t.Helper()

	account := &sokoni.Account{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FullName:     "Test Person",
		Role:         role,
		IsApproved:   true,
		IsActive:     true,
	}
	_, err := db.NewInsert().Model(account).Exec(context.Background())
	require.NoError(t, err)

	return account
}

func seedOrder(t *testing.T, f *fixture) (*sokoni.Account, *sokoni.Account, *marketplace.Order) {
	t.Helper()
	ctx := context.Background()

	seller := seedAccountIn(t, f.db, sokoni.RoleServiceSeller)
	buyer := seedAccountIn(t, f.db, sokoni.RolePublic)

	listing, err := f.catalog.CreateListing(ctx, seller, marketplace.ListingInput{Title: "Web design", Price: 1000})
	require.NoError(t, err)

	order, err := f.catalog.PlaceOrder(ctx, buyer, listing.ID)
	require.NoError(t, err)

	return seller, buyer, order
}

func successCallback(checkoutID, receipt string) *payments.STKCallback {
	cb := &payments.STKCallback{}
	cb.Body.StkCallback.CheckoutRequestID = checkoutID
	cb.Body.StkCallback.ResultCode = 0
	cb.Body.StkCallback.CallbackMetadata.Item = []struct {
		Name  string `json:"Name"`
		Value any    `json:"Value"`
	}{
		{Name: "MpesaReceiptNumber", Value: receipt},
	}
	return cb
}

func TestPaymentStatusAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer, order := seedOrder(t, f)
	ceo := seedAccountIn(t, f.db, sokoni.RoleCEO)

	f.gateway.On("STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payments.STKPushResponse{
			MerchantRequestID: "merchant-1",
			CheckoutRequestID: "checkout-status",
			ResponseCode:      "0",
		}, nil).Once()

	_, err := f.service.InitiateSTK(ctx, buyer, order.ID, "0712345678")
	require.NoError(t, err)

	payment, err := f.service.PaymentStatus(ctx, buyer, "checkout-status")
	require.NoError(t, err)
	assert.Equal(t, payments.PaymentPending, payment.Status)

	_, err = f.service.PaymentStatus(ctx, ceo, "checkout-status")
	assert.NoError(t, err)

	_, err = f.service.PaymentStatus(ctx, seller, "checkout-status")
	assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)

	_, err = f.service.PaymentStatus(ctx, buyer, "missing")
	assert.ErrorIs(t, err, payments.ErrPaymentNotFound)
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":    "254712345678",
		"+254712345678": "254712345678",
		"254712345678":  "254712345678",
		"0712 345 678":  "254712345678",
	}

	for raw, want := range cases {
		got, err := payments.NormalizePhone(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := payments.NormalizePhone("12")
	assert.ErrorIs(t, err, payments.ErrInvalidPhone)
}

func TestInitiateSTKSplitsCommission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, buyer, order := seedOrder(t, f)

	f.gateway.On("STKPush", mock.Anything, "254712345678", 1000.0, mock.Anything, mock.Anything).
		Return(&payments.STKPushResponse{
			MerchantRequestID: "merchant-1",
			CheckoutRequestID: "checkout-1",
			ResponseCode:      "0",
		}, nil).Once()

	payment, err := f.service.InitiateSTK(ctx, buyer, order.ID, "0712345678")
	require.NoError(t, err)

	assert.Equal(t, 1000.0, payment.Amount)
	assert.Equal(t, 200.0, payment.Commission)
	assert.Equal(t, 800.0, payment.NetAmount)
	assert.Equal(t, payments.PaymentPending, payment.Status)
	assert.Equal(t, "checkout-1", payment.CheckoutRequestID)

	f.gateway.AssertExpectations(t)
}

func TestCallbackSettlesOrderAndLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer, order := seedOrder(t, f)

	f.gateway.On("STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payments.STKPushResponse{CheckoutRequestID: "checkout-1", ResponseCode: "0"}, nil).Once()

	_, err := f.service.InitiateSTK(ctx, buyer, order.ID, "0712345678")
	require.NoError(t, err)

	require.NoError(t, f.service.HandleCallback(ctx, successCallback("checkout-1", "QK12XY89ZT")))

	paid, err := f.catalog.GetOrder(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.OrderPaid, paid.Status)

	balance, txns, err := f.service.Earnings(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, 800.0, balance)
	require.Len(t, txns, 1)
	assert.Equal(t, payments.TransactionEarning, txns[0].Kind)
	assert.Equal(t, "QK12XY89ZT", txns[0].Reference)

	t.Run("commission lands on the platform account", func(t *testing.T) {
		_, buyerTxns, err := f.service.Earnings(ctx, buyer)
		require.NoError(t, err)
		assert.Empty(t, buyerTxns)

		platformTxns, err := payments.NewStore(f.db).ListTransactions(ctx, payments.PlatformAccountID)
		require.NoError(t, err)
		require.Len(t, platformTxns, 1)
		assert.Equal(t, payments.TransactionCommission, platformTxns[0].Kind)
		assert.Equal(t, 200.0, platformTxns[0].Amount)
	})

	t.Run("replayed callback is a no-op", func(t *testing.T) {
		require.NoError(t, f.service.HandleCallback(ctx, successCallback("checkout-1", "QK12XY89ZT")))

		balance, txns, err := f.service.Earnings(ctx, seller)
		require.NoError(t, err)
		assert.Equal(t, 800.0, balance)
		assert.Len(t, txns, 1)
	})
}

func TestCallbackFailureLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer, order := seedOrder(t, f)

	f.gateway.On("STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payments.STKPushResponse{CheckoutRequestID: "checkout-1", ResponseCode: "0"}, nil).Once()

	_, err := f.service.InitiateSTK(ctx, buyer, order.ID, "0712345678")
	require.NoError(t, err)

	cb := &payments.STKCallback{}
	cb.Body.StkCallback.CheckoutRequestID = "checkout-1"
	cb.Body.StkCallback.ResultCode = 1032
	cb.Body.StkCallback.ResultDesc = "Request cancelled by user"

	require.NoError(t, f.service.HandleCallback(ctx, cb))

	still, err := f.catalog.GetOrder(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.OrderPending, still.Status)

	balance, _, err := f.service.Earnings(ctx, seller)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller, buyer, order := seedOrder(t, f)

	f.gateway.On("STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payments.STKPushResponse{CheckoutRequestID: "checkout-1", ResponseCode: "0"}, nil).Once()

	_, err := f.service.InitiateSTK(ctx, buyer, order.ID, "0712345678")
	require.NoError(t, err)
	require.NoError(t, f.service.HandleCallback(ctx, successCallback("checkout-1", "QK12XY89ZT")))

	t.Run("requires a payout account", func(t *testing.T) {
		_, err := f.service.Withdraw(ctx, seller, 100)
		assert.ErrorIs(t, err, payments.ErrNoPayoutAccount)
	})

	_, err = f.service.SavePayoutAccount(ctx, seller, "0798765432")
	require.NoError(t, err)

	t.Run("cannot exceed balance", func(t *testing.T) {
		_, err := f.service.Withdraw(ctx, seller, 900)
		assert.ErrorIs(t, err, payments.ErrInsufficientBalance)
	})

	t.Run("pays out over b2c", func(t *testing.T) {
		f.gateway.On("B2C", mock.Anything, "254798765432", 500.0, mock.Anything).
			Return(&payments.B2CResponse{ConversationID: "conv-1", ResponseCode: "0"}, nil).Once()

		txn, err := f.service.Withdraw(ctx, seller, 500)
		require.NoError(t, err)
		assert.Equal(t, payments.TransactionWithdrawal, txn.Kind)
		assert.Equal(t, "conv-1", txn.Reference)

		// the withdrawal counts against the balance immediately
		balance, _, err := f.service.Earnings(ctx, seller)
		require.NoError(t, err)
		assert.Equal(t, 300.0, balance)

		f.gateway.AssertExpectations(t)
	})
}

func TestCommissionTotalRestricted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, buyer, order := seedOrder(t, f)
	ceo := seedAccountIn(t, f.db, sokoni.RoleCEO)

	f.gateway.On("STKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payments.STKPushResponse{CheckoutRequestID: "checkout-1", ResponseCode: "0"}, nil).Once()

	_, err := f.service.InitiateSTK(ctx, buyer, order.ID, "0712345678")
	require.NoError(t, err)
	require.NoError(t, f.service.HandleCallback(ctx, successCallback("checkout-1", "QK12XY89ZT")))

	total, err := f.service.CommissionTotal(ctx, ceo)
	require.NoError(t, err)
	assert.Equal(t, 200.0, total)

	_, err = f.service.CommissionTotal(ctx, buyer)
	assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
}
