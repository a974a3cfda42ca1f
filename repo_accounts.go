package sokoni

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ResetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"password_hash" = ?
WHERE
	"acc"."id" = ?
RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error)
	SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*Account, error)

	Approve(ctx context.Context, tx bun.IDB, id, approverID uuid.UUID) error

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	ListByRole(ctx context.Context, role Role) ([]*Account, error)
	CountActiveByRole(ctx context.Context, roles []Role) (map[Role]int, error)

	HardDelete(ctx context.Context, id uuid.UUID) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

// GetByEmailTx looks an account up by its exact email. The email column is
// the case-sensitive natural key.
func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound.WithMetadata(map[string]any{
				"email": email,
			})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

// RegisterTx inserts a new account, mapping the email uniqueness constraint
// to a conflict. Concurrent duplicate registrations lose here, never with a
// partial write.
func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	prepareAccountDefaults(account)

	record, err := a.Repository.CreateTx(ctx, tx, account)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrEmailTaken.WithMetadata(map[string]any{
				"email": account.Email,
			})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error) {
	return a.SetActiveTx(ctx, a.db, id, active)
}

func (a *accounts) SetActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*Account, error) {
	record := &Account{}
	err := tx.NewUpdate().
		Model(record).
		Set("is_active = ?", active).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound.WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return nil, err
	}

	return record, nil
}

// Approve flips the approval flag and records the approver. Runs inside the
// caller's transaction so the approval row and the account flip commit
// together.
func (a *accounts) Approve(ctx context.Context, tx bun.IDB, id, approverID uuid.UUID) error {
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("is_approved = ?", true).
		Set("approved_by = ?", approverID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func (a *accounts) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	var res []*Account
	if err := tx.NewRaw(ResetAccountPasswordSQL, passwordHash, id.String()).Scan(ctx, &res); err != nil {
		return err
	}

	if len(res) == 0 {
		return ErrAccountNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func (a *accounts) ListByRole(ctx context.Context, role Role) ([]*Account, error) {
	var records []*Account
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.role = ?", string(role)).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountActiveByRole counts active, approved accounts grouped by role. An
// empty roles slice counts every role.
func (a *accounts) CountActiveByRole(ctx context.Context, roles []Role) (map[Role]int, error) {
	var rows []struct {
		Role  string `bun:"role"`
		Count int    `bun:"count"`
	}

	q := a.db.NewSelect().
		Model((*Account)(nil)).
		ColumnExpr("?TableAlias.role AS role").
		ColumnExpr("COUNT(?TableAlias.id) AS count").
		Where("?TableAlias.is_active = ?", true).
		Where("?TableAlias.is_approved = ?", true).
		Group("role")

	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		q = q.Where("?TableAlias.role IN (?)", bun.In(names))
	}

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[Role]int, len(rows))
	for _, row := range rows {
		counts[Role(row.Role)] = row.Count
	}

	return counts, nil
}

// HardDelete removes the row outright. The approval history keeps its weak
// back-references; they are lookup-only and never cascaded.
func (a *accounts) HardDelete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound.WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RolePublic
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
