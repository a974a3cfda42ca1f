package sokoni_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sokoni-dev/sokoni"
)

func acct(role sokoni.Role) *sokoni.Account {
	return &sokoni.Account{
		ID:         uuid.New(),
		Role:       role,
		IsApproved: true,
		IsActive:   true,
	}
}

func TestGuardDeniesUnknownOperation(t *testing.T) {
	guard := sokoni.NewGuard()
	err := guard.Authorize(acct(sokoni.RoleCEO), sokoni.Operation("accounts.explode"), nil)
	assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
}

func TestGuardDeniesNilActor(t *testing.T) {
	guard := sokoni.NewGuard()
	err := guard.Authorize(nil, sokoni.OpViewAccounts, nil)
	assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
}

func TestGuardSuspend(t *testing.T) {
	guard := sokoni.NewGuard()

	t.Run("admin may suspend creator", func(t *testing.T) {
		assert.NoError(t, guard.Authorize(acct(sokoni.RoleAdmin), sokoni.OpSuspendAccount, acct(sokoni.RoleCreator)))
	})

	t.Run("admin may not suspend another admin", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RoleAdmin), sokoni.OpSuspendAccount, acct(sokoni.RoleAdmin))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})

	t.Run("admin may not suspend a ceo", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RoleAdmin), sokoni.OpSuspendAccount, acct(sokoni.RoleCEO))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})

	t.Run("ceo may suspend admin", func(t *testing.T) {
		assert.NoError(t, guard.Authorize(acct(sokoni.RoleCEO), sokoni.OpSuspendAccount, acct(sokoni.RoleAdmin)))
	})

	t.Run("ceo may not suspend another ceo", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RoleCEO), sokoni.OpSuspendAccount, acct(sokoni.RoleCEO))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})

	t.Run("self suspension denied", func(t *testing.T) {
		actor := acct(sokoni.RoleCEO)
		err := guard.Authorize(actor, sokoni.OpSuspendAccount, actor)
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})

	t.Run("creator may not suspend anyone", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RoleCreator), sokoni.OpSuspendAccount, acct(sokoni.RolePublic))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})
}

func TestGuardDelete(t *testing.T) {
	guard := sokoni.NewGuard()

	t.Run("self deletion denied", func(t *testing.T) {
		actor := acct(sokoni.RoleAdmin)
		err := guard.Authorize(actor, sokoni.OpDeleteAccount, actor)
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})

	t.Run("admin deletes it_support", func(t *testing.T) {
		assert.NoError(t, guard.Authorize(acct(sokoni.RoleAdmin), sokoni.OpDeleteAccount, acct(sokoni.RoleITSupport)))
	})

	t.Run("admin may not delete service_seller", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RoleAdmin), sokoni.OpDeleteAccount, acct(sokoni.RoleServiceSeller))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})
}

func TestGuardActivateSelfExempt(t *testing.T) {
	guard := sokoni.NewGuard()

	actor := acct(sokoni.RoleCEO)
	assert.NoError(t, guard.Authorize(actor, sokoni.OpActivateAccount, actor))

	err := guard.Authorize(actor, sokoni.OpActivateAccount, acct(sokoni.RoleCEO))
	assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
}

func TestGuardResetPassword(t *testing.T) {
	guard := sokoni.NewGuard()

	t.Run("it_support resets public", func(t *testing.T) {
		assert.NoError(t, guard.Authorize(acct(sokoni.RoleITSupport), sokoni.OpResetPassword, acct(sokoni.RolePublic)))
	})

	t.Run("only ceo resets ceo", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RoleITSupport), sokoni.OpResetPassword, acct(sokoni.RoleCEO))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)

		err = guard.Authorize(acct(sokoni.RoleAdmin), sokoni.OpResetPassword, acct(sokoni.RoleCEO))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)

		assert.NoError(t, guard.Authorize(acct(sokoni.RoleCEO), sokoni.OpResetPassword, acct(sokoni.RoleCEO)))
	})

	t.Run("public may not reset", func(t *testing.T) {
		err := guard.Authorize(acct(sokoni.RolePublic), sokoni.OpResetPassword, acct(sokoni.RolePublic))
		assert.ErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})
}

func TestApprovalGate(t *testing.T) {
	guard := sokoni.NewGuard()

	t.Run("public passes unapproved", func(t *testing.T) {
		actor := acct(sokoni.RolePublic)
		actor.IsApproved = false
		assert.NoError(t, guard.ApprovalGate(actor))
	})

	t.Run("ceo passes unapproved", func(t *testing.T) {
		actor := acct(sokoni.RoleCEO)
		actor.IsApproved = false
		assert.NoError(t, guard.ApprovalGate(actor))
	})

	t.Run("unapproved creator blocked with pending error", func(t *testing.T) {
		actor := acct(sokoni.RoleCreator)
		actor.IsApproved = false
		err := guard.ApprovalGate(actor)
		assert.ErrorIs(t, err, sokoni.ErrPendingApproval)
		assert.NotErrorIs(t, err, sokoni.ErrInsufficientPermissions)
	})

	t.Run("approved creator passes", func(t *testing.T) {
		assert.NoError(t, guard.ApprovalGate(acct(sokoni.RoleCreator)))
	})
}
