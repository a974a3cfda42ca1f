package sokoni

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountProvider resolves identities against the accounts repository.
type AccountProvider struct {
	store  Accounts
	logger Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store Accounts) *AccountProvider {
	return &AccountProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// VerifyIdentity finds the account and compares the password. Unknown email
// and wrong password both come back as ErrInvalidCredentials so callers
// cannot tell which one it was; the active check runs only after the
// credential is proven.
func (p AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, ErrAccountDeactivated
	}

	return account.Identity(), nil
}

// FindIdentityByID resolves an identity from a stored account id. Inactive
// accounts are rejected here so a token cannot outlive a suspension.
func (p AccountProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	account, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if account == nil {
		return nil, ErrAccountNotFound
	}

	if !account.IsActive {
		return nil, ErrAccountDeactivated
	}

	return account.Identity(), nil
}

var _ IdentityProvider = (*AccountProvider)(nil)
