package sokoni

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterAccountMessage carries a registration request.
type RegisterAccountMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	Bio       string `json:"bio"`
	Avatar    string `json:"avatar"`
	UseHashid bool
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountHandler creates the account row and, for privileged roles,
// the elevation request that gates it.
type RegisterAccountHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *RegisterAccountHandler) WithLogger(l Logger) *RegisterAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

// Execute registers the account. Public and CEO roles are approved at
// creation; a CEO request is written already approved (the bootstrap path),
// every other privileged role gets a pending request.
//
// The elevation request is best effort: the account insert must succeed, but
// a failure writing the request is logged and the registration still
// returns the account. Support can re-create the request from the log line.
func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role := Role(event.Role)
	if role == "" {
		role = RolePublic
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return err
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = event.Email
		account.FullName = event.FullName
		account.Bio = event.Bio
		account.Avatar = event.Avatar
		account.Role = role
		account.IsApproved = role.AutoApproved()
		account.IsActive = true
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return err
		}

		if role != RolePublic {
			status := ApprovalPending
			if role == RoleCEO {
				// founding account; the request row keeps the audit trail
				status = ApprovalApproved
			}

			request := &Approval{
				AccountID:     account.ID,
				RequestedRole: role,
				Status:        status,
			}

			if _, err := h.repo.Approvals().RequestTx(ctx, tx, request); err != nil {
				h.logger.Error("failed to create elevation request",
					"account_id", account.ID.String(),
					"requested_role", role,
					"error", err,
				)
			} else {
				h.logger.Info("elevation request created",
					"account_id", account.ID.String(),
					"requested_role", role,
					"status", status,
				)
			}
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	return account, nil
}
