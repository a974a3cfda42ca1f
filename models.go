package sokoni

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is a registered marketplace identity.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FullName      string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Role          Role       `bun:"role,notnull" json:"role,omitempty"`
	IsApproved    bool       `bun:"is_approved" json:"is_approved"`
	IsActive      bool       `bun:"is_active" json:"is_active"`
	ApprovedBy    *uuid.UUID `bun:"approved_by,nullzero,type:uuid" json:"approved_by,omitempty"`
	Bio           string     `bun:"bio" json:"bio,omitempty"`
	Avatar        string     `bun:"avatar" json:"avatar,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Identity returns the account's identity view used by the token service.
func (a *Account) Identity() Identity {
	return accountIdentity{
		id:          a.ID.String(),
		email:       a.Email,
		displayName: a.FullName,
		role:        a.Role,
	}
}

// ApprovalStatus is the lifecycle state of a role elevation request.
type ApprovalStatus string

const (
	// ApprovalPending is the initial state of every non-CEO request.
	ApprovalPending ApprovalStatus = "pending"
	// ApprovalApproved is a terminal state.
	ApprovalApproved ApprovalStatus = "approved"
	// ApprovalRejected is a terminal state.
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval records one role elevation request. Rows are never deleted and a
// decided row is never reopened.
type Approval struct {
	bun.BaseModel `bun:"table:approvals,alias:apr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID      `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Account       *Account       `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	RequestedRole Role           `bun:"requested_role,notnull" json:"requested_role,omitempty"`
	Status        ApprovalStatus `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	ApprovedBy    *uuid.UUID     `bun:"approved_by,nullzero,type:uuid" json:"approved_by,omitempty"`
	Approver      *Account       `bun:"rel:belongs-to,join:approved_by=id" json:"approver,omitempty"`
	Reason        string         `bun:"reason" json:"reason,omitempty"`
	ApprovalDate  *time.Time     `bun:"approval_date,nullzero" json:"approval_date,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Decided reports whether the request reached a terminal state.
func (r *Approval) Decided() bool {
	return r.Status == ApprovalApproved || r.Status == ApprovalRejected
}
