package sokoni

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ApprovalEngine owns the role elevation state machine. A request moves from
// pending to approved or rejected exactly once; there is no way back out of
// a terminal state.
type ApprovalEngine struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

// EngineOption customizes engine construction.
type EngineOption func(*ApprovalEngine)

// WithEngineClock injects a custom clock (useful for tests).
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *ApprovalEngine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithEngineLogger overrides the engine logger.
func WithEngineLogger(logger Logger) EngineOption {
	return func(e *ApprovalEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewApprovalEngine returns the engine backed by the provided repositories.
func NewApprovalEngine(repo RepositoryManager, opts ...EngineOption) *ApprovalEngine {
	e := &ApprovalEngine{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// ListPending returns the pending requests the decider's role may rule on,
// newest first. Roles with an empty allowed set are rejected outright.
func (e *ApprovalEngine) ListPending(ctx context.Context, decider Role) ([]*Approval, error) {
	allowed := DecidableRoles(decider)
	if len(allowed) == 0 {
		return nil, ErrForbiddenDecision.WithMetadata(map[string]any{
			"decider_role": decider,
		})
	}

	return e.repo.Approvals().ListPendingForRoles(ctx, allowed)
}

// Decide applies a terminal decision to a pending request. The status flip
// and, on approval, the target account's approval flag commit in one
// transaction; a concurrent decision loses with a conflict and the account
// is mutated at most once.
//
// The matrix is evaluated against the request's requested role, not against
// whatever role the requesting account currently holds.
func (e *ApprovalEngine) Decide(ctx context.Context, requestID uuid.UUID, decider *Account, approved bool, reason string) (*Approval, error) {
	if decider == nil {
		return nil, ErrForbiddenDecision
	}

	req, err := e.repo.Approvals().GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !CanDecide(decider.Role, req.RequestedRole) {
		return nil, ErrForbiddenDecision.WithMetadata(map[string]any{
			"decider_role":   decider.Role,
			"requested_role": req.RequestedRole,
		})
	}

	status := ApprovalRejected
	if approved {
		status = ApprovalApproved
	}
	decidedAt := e.now()

	err = e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		rows, err := e.repo.Approvals().MarkDecidedTx(ctx, tx, requestID, status, decider.ID, reason, decidedAt)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist approval decision")
		}

		if rows == 0 {
			return ErrApprovalDecided.WithMetadata(map[string]any{
				"id": requestID.String(),
			})
		}

		if approved {
			return e.repo.Accounts().Approve(ctx, tx, req.AccountID, decider.ID)
		}

		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "approval decision transaction failed")
	}

	e.logger.Info("approval decided",
		"request_id", requestID.String(),
		"status", status,
		"decider", decider.ID.String(),
	)

	req.Status = status
	req.ApprovedBy = &decider.ID
	req.ApprovalDate = &decidedAt
	req.Reason = reason

	return req, nil
}

// StatusFor returns the most recent request for an account, or nil when the
// account never asked for an elevated role. Absence is not an error.
func (e *ApprovalEngine) StatusFor(ctx context.Context, accountID uuid.UUID) (*Approval, error) {
	return e.repo.Approvals().LatestForAccount(ctx, accountID)
}
