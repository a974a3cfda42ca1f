package sokoni_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoni-dev/sokoni"
)

func TestListPendingRespectsMatrix(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)
	ctx := context.Background()

	registerAccount(t, repo, "creator@example.com", sokoni.RoleCreator)
	registerAccount(t, repo, "support@example.com", sokoni.RoleITSupport)
	registerAccount(t, repo, "seller@example.com", sokoni.RoleServiceSeller)
	registerAccount(t, repo, "wannabe-admin@example.com", sokoni.RoleAdmin)

	t.Run("admin sees creator, it_support and service_seller", func(t *testing.T) {
		pending, err := engine.ListPending(ctx, sokoni.RoleAdmin)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		for _, req := range pending {
			assert.NotEqual(t, sokoni.RoleAdmin, req.RequestedRole)
			require.NotNil(t, req.Account)
		}
	})

	t.Run("ceo sees admin and service_seller", func(t *testing.T) {
		pending, err := engine.ListPending(ctx, sokoni.RoleCEO)
		require.NoError(t, err)
		require.Len(t, pending, 2)
	})

	t.Run("creator may not list", func(t *testing.T) {
		_, err := engine.ListPending(ctx, sokoni.RoleCreator)
		assert.ErrorIs(t, err, sokoni.ErrForbiddenDecision)
	})
}

func TestDecideApproves(t *testing.T) {
	repo := newTestRepo(t)
	decidedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	engine := sokoni.NewApprovalEngine(repo, sokoni.WithEngineClock(func() time.Time { return decidedAt }))
	ctx := context.Background()

	creator := registerAccount(t, repo, "creator@example.com", sokoni.RoleCreator)
	admin := registerAccount(t, repo, "admin@example.com", sokoni.RoleAdmin)
	ceo := registerAccount(t, repo, "boss@example.com", sokoni.RoleCEO)
	approveAccount(t, repo, admin, ceo)

	req := pendingRequestFor(t, repo, creator)

	decided, err := engine.Decide(ctx, req.ID, admin, true, "portfolio checks out")
	require.NoError(t, err)

	assert.Equal(t, sokoni.ApprovalApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, admin.ID, *decided.ApprovedBy)
	require.NotNil(t, decided.ApprovalDate)
	assert.Equal(t, decidedAt, decided.ApprovalDate.UTC())
	assert.Equal(t, "portfolio checks out", decided.Reason)

	// the account flips with the request
	account, err := repo.Accounts().GetByID(ctx, creator.ID.String())
	require.NoError(t, err)
	assert.True(t, account.IsApproved)
	require.NotNil(t, account.ApprovedBy)
	assert.Equal(t, admin.ID, *account.ApprovedBy)
}

func TestDecideRejectLeavesAccountUnapproved(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)
	ctx := context.Background()

	seller := registerAccount(t, repo, "seller@example.com", sokoni.RoleServiceSeller)
	ceo := registerAccount(t, repo, "boss@example.com", sokoni.RoleCEO)

	req := pendingRequestFor(t, repo, seller)

	decided, err := engine.Decide(ctx, req.ID, ceo, false, "insufficient history")
	require.NoError(t, err)
	assert.Equal(t, sokoni.ApprovalRejected, decided.Status)

	account, err := repo.Accounts().GetByID(ctx, seller.ID.String())
	require.NoError(t, err)
	assert.False(t, account.IsApproved)
	assert.Nil(t, account.ApprovedBy)
}

func TestDecideOutsideMatrixForbidden(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)
	ctx := context.Background()

	wannabe := registerAccount(t, repo, "wannabe-admin@example.com", sokoni.RoleAdmin)
	admin := registerAccount(t, repo, "admin@example.com", sokoni.RoleAdmin)
	ceo := registerAccount(t, repo, "boss@example.com", sokoni.RoleCEO)
	approveAccount(t, repo, admin, ceo)

	req := pendingRequestFor(t, repo, wannabe)

	// admin requests are decided by the ceo only
	_, err := engine.Decide(ctx, req.ID, admin, true, "")
	assert.ErrorIs(t, err, sokoni.ErrForbiddenDecision)

	creator := registerAccount(t, repo, "creator@example.com", sokoni.RoleCreator)
	creatorReq := pendingRequestFor(t, repo, creator)

	// and creator requests are below the ceo
	_, err = engine.Decide(ctx, creatorReq.ID, ceo, true, "")
	assert.ErrorIs(t, err, sokoni.ErrForbiddenDecision)
}

func TestDecideTwiceConflicts(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)
	ctx := context.Background()

	creator := registerAccount(t, repo, "creator@example.com", sokoni.RoleCreator)
	admin := registerAccount(t, repo, "admin@example.com", sokoni.RoleAdmin)
	ceo := registerAccount(t, repo, "boss@example.com", sokoni.RoleCEO)
	approveAccount(t, repo, admin, ceo)

	req := pendingRequestFor(t, repo, creator)

	_, err := engine.Decide(ctx, req.ID, admin, false, "first ruling")
	require.NoError(t, err)

	// a second ruling loses, even if it disagrees
	_, err = engine.Decide(ctx, req.ID, admin, true, "changed my mind")
	assert.ErrorIs(t, err, sokoni.ErrApprovalDecided)

	// and the terminal state stands
	stored, err := repo.Approvals().GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, sokoni.ApprovalRejected, stored.Status)

	account, err := repo.Accounts().GetByID(ctx, creator.ID.String())
	require.NoError(t, err)
	assert.False(t, account.IsApproved)
}

func TestConcurrentDecideSingleWinner(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)
	ctx := context.Background()

	creator := registerAccount(t, repo, "creator@example.com", sokoni.RoleCreator)
	admin := registerAccount(t, repo, "admin@example.com", sokoni.RoleAdmin)
	ceo := registerAccount(t, repo, "boss@example.com", sokoni.RoleCEO)
	approveAccount(t, repo, admin, ceo)

	req := pendingRequestFor(t, repo, creator)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, approved := range []bool{true, false} {
		wg.Add(1)
		go func(approved bool) {
			defer wg.Done()
			_, err := engine.Decide(ctx, req.ID, admin, approved, "racing ruling")
			results <- err
		}(approved)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, sokoni.ErrApprovalDecided):
			conflicts++
		default:
			t.Fatalf("unexpected decide error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	stored, err := repo.Approvals().GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.Decided())
}

func TestDecideUnknownRequest(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)

	ceo := registerAccount(t, repo, "boss@example.com", sokoni.RoleCEO)

	_, err := engine.Decide(context.Background(), uuid.New(), ceo, true, "")
	assert.ErrorIs(t, err, sokoni.ErrApprovalNotFound)
}

func TestStatusForAccountWithoutRequest(t *testing.T) {
	repo := newTestRepo(t)
	engine := sokoni.NewApprovalEngine(repo)

	buyer := registerAccount(t, repo, "buyer@example.com", sokoni.RolePublic)

	status, err := engine.StatusFor(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Nil(t, status)
}
