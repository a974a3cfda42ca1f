package sokoni

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Approvals interface {
	repository.Repository[*Approval]

	Request(ctx context.Context, req *Approval) (*Approval, error)
	RequestTx(ctx context.Context, tx bun.IDB, req *Approval) (*Approval, error)

	GetByRequestID(ctx context.Context, id uuid.UUID) (*Approval, error)
	ListPendingForRoles(ctx context.Context, roles []Role) ([]*Approval, error)
	LatestForAccount(ctx context.Context, accountID uuid.UUID) (*Approval, error)

	// MarkDecidedTx conditionally moves a pending request to a terminal
	// status; the returned row count is zero when another decision won.
	MarkDecidedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ApprovalStatus, deciderID uuid.UUID, reason string, at time.Time) (int64, error)
}

type approvals struct {
	repository.Repository[*Approval]
	db *bun.DB
}

var (
	_ Approvals                        = (*approvals)(nil)
	_ repository.Repository[*Approval] = (*approvals)(nil)
)

func NewApprovalsRepository(db *bun.DB) Approvals {
	repo := repository.NewRepository[*Approval](db, repository.ModelHandlers[*Approval]{
		NewRecord: func() *Approval { return &Approval{} },
		GetID: func(r *Approval) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Approval, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &approvals{
		Repository: repo,
		db:         db,
	}
}

func (a *approvals) Request(ctx context.Context, req *Approval) (*Approval, error) {
	return a.RequestTx(ctx, a.db, req)
}

func (a *approvals) RequestTx(ctx context.Context, tx bun.IDB, req *Approval) (*Approval, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.Status == "" {
		req.Status = ApprovalPending
	}
	return a.Repository.CreateTx(ctx, tx, req)
}

// GetByRequestID loads a request with its subject account. The embedded
// Repository keeps the criteria-based Get; this one is keyed and eager.
func (a *approvals) GetByRequestID(ctx context.Context, id uuid.UUID) (*Approval, error) {
	record := &Approval{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Account").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApprovalNotFound.WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return nil, err
	}

	return record, nil
}

// ListPendingForRoles returns pending requests whose requested role falls in
// the decider's allowed set, newest first.
func (a *approvals) ListPendingForRoles(ctx context.Context, roles []Role) ([]*Approval, error) {
	if len(roles) == 0 {
		return []*Approval{}, nil
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	var records []*Approval
	err := a.db.NewSelect().
		Model(&records).
		Relation("Account").
		Where("?TableAlias.status = ?", string(ApprovalPending)).
		Where("?TableAlias.requested_role IN (?)", bun.In(names)).
		Order("apr.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// LatestForAccount returns the most recent request for an account, with the
// approver's display identity when decided. A missing request is nil, not an
// error.
func (a *approvals) LatestForAccount(ctx context.Context, accountID uuid.UUID) (*Approval, error) {
	record := &Approval{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Approver").
		Where("?TableAlias.account_id = ?", accountID).
		Order("apr.created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

func (a *approvals) MarkDecidedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ApprovalStatus, deciderID uuid.UUID, reason string, at time.Time) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*Approval)(nil)).
		Set("status = ?", string(status)).
		Set("approved_by = ?", deciderID).
		Set("approval_date = ?", at).
		Set("reason = ?", reason).
		Set("updated_at = ?", at).
		Where("id = ? AND status = ?", id, string(ApprovalPending)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
