package sokoni

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AccountManager runs the administrative account lifecycle: suspension,
// reactivation, deletion, and password resets. Every operation resolves the
// target first, then asks the Guard, then mutates.
type AccountManager struct {
	repo   RepositoryManager
	guard  Guard
	logger Logger
}

func NewAccountManager(repo RepositoryManager) *AccountManager {
	return &AccountManager{
		repo:   repo,
		guard:  NewGuard(),
		logger: defLogger{},
	}
}

func (m *AccountManager) WithLogger(l Logger) *AccountManager {
	if l != nil {
		m.logger = l
	}
	return m
}

func (m *AccountManager) resolveTarget(ctx context.Context, id uuid.UUID) (*Account, error) {
	target, err := m.repo.Accounts().GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound.WithMetadata(map[string]any{
				"account_id": id.String(),
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}
	return target, nil
}

// Suspend marks the target inactive. Suspended accounts keep their rows and
// history; they just stop authenticating.
func (m *AccountManager) Suspend(ctx context.Context, actor *Account, targetID uuid.UUID) (*Account, error) {
	target, err := m.resolveTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := m.guard.Authorize(actor, OpSuspendAccount, target); err != nil {
		return nil, err
	}

	updated, err := m.repo.Accounts().SetActive(ctx, target.ID, false)
	if err != nil {
		return nil, err
	}

	m.logger.Info("account suspended",
		"account_id", target.ID.String(),
		"actor_id", actor.ID.String(),
	)

	return updated, nil
}

// Activate reinstates a suspended account.
func (m *AccountManager) Activate(ctx context.Context, actor *Account, targetID uuid.UUID) (*Account, error) {
	target, err := m.resolveTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := m.guard.Authorize(actor, OpActivateAccount, target); err != nil {
		return nil, err
	}

	updated, err := m.repo.Accounts().SetActive(ctx, target.ID, true)
	if err != nil {
		return nil, err
	}

	m.logger.Info("account activated",
		"account_id", target.ID.String(),
		"actor_id", actor.ID.String(),
	)

	return updated, nil
}

// Delete removes the account row permanently. There is no tombstone; callers
// that need an audit trail should suspend instead.
func (m *AccountManager) Delete(ctx context.Context, actor *Account, targetID uuid.UUID) error {
	target, err := m.resolveTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := m.guard.Authorize(actor, OpDeleteAccount, target); err != nil {
		return err
	}

	if err := m.repo.Accounts().HardDelete(ctx, target.ID); err != nil {
		return err
	}

	m.logger.Info("account deleted",
		"account_id", target.ID.String(),
		"actor_id", actor.ID.String(),
	)

	return nil
}

// ResetPassword sets a new password on the target account. The password is
// validated before authorization so a caller probing the endpoint learns
// nothing about the target from a short password.
func (m *AccountManager) ResetPassword(ctx context.Context, actor *Account, targetID uuid.UUID, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort.WithMetadata(map[string]any{
			"min_length": MinPasswordLength,
		})
	}

	target, err := m.resolveTarget(ctx, targetID)
	if err != nil {
		return err
	}

	if err := m.guard.Authorize(actor, OpResetPassword, target); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := m.repo.Accounts().ResetPassword(ctx, target.ID, hash); err != nil {
		return err
	}

	m.logger.Info("password reset",
		"account_id", target.ID.String(),
		"actor_id", actor.ID.String(),
	)

	return nil
}

// ListByRole returns the accounts that hold a role, newest first. Admin
// actors only see the roles they manage.
func (m *AccountManager) ListByRole(ctx context.Context, actor *Account, role Role) ([]*Account, error) {
	if err := m.guard.Authorize(actor, OpViewAccounts, nil); err != nil {
		return nil, err
	}

	if actor.Role == RoleAdmin && !role.AdminManaged() {
		return nil, ErrInsufficientPermissions.WithMetadata(map[string]any{
			"operation": string(OpViewAccounts),
			"role":      role,
		})
	}

	return m.repo.Accounts().ListByRole(ctx, role)
}

// RoleCounts reports active account totals per role for the dashboard.
func (m *AccountManager) RoleCounts(ctx context.Context, actor *Account) (map[Role]int, error) {
	if err := m.guard.Authorize(actor, OpViewAccounts, nil); err != nil {
		return nil, err
	}

	roles := KnownRoles()
	if actor.Role == RoleAdmin {
		roles = AdminManagedRoles()
	}

	return m.repo.Accounts().CountActiveByRole(ctx, roles)
}
