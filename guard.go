package sokoni

// Operation names a privileged action a handler wants to perform. Every
// mutating endpoint consults the Guard with one of these before touching
// state, so the role matrix lives in exactly one place.
type Operation string

const (
	OpViewAccounts    Operation = "accounts.view"
	OpSuspendAccount  Operation = "accounts.suspend"
	OpActivateAccount Operation = "accounts.activate"
	OpDeleteAccount   Operation = "accounts.delete"
	OpResetPassword   Operation = "accounts.reset_password"
	OpManageListings  Operation = "listings.manage"
	OpManageSettings  Operation = "settings.manage"
)

type operationRule struct {
	roles []Role
	// destructive operations always deny a self target
	destructive bool
	scope       func(actor, target *Account) error
}

// adminScope restricts admin actors to the accounts they manage.
func adminScope(actor, target *Account) error {
	if actor.Role != RoleAdmin || target == nil {
		return nil
	}
	if !target.Role.AdminManaged() {
		return ErrInsufficientPermissions.WithMetadata(map[string]any{
			"operation":   "admin_scope",
			"target_role": target.Role,
		})
	}
	return nil
}

// ceoPeerScope keeps one CEO from acting on another CEO's account. When
// selfExempt is set the actor may still act on their own account.
func ceoPeerScope(selfExempt bool) func(actor, target *Account) error {
	return func(actor, target *Account) error {
		if actor.Role != RoleCEO || target == nil || target.Role != RoleCEO {
			return nil
		}
		if selfExempt && actor.ID == target.ID {
			return nil
		}
		return ErrInsufficientPermissions.WithMetadata(map[string]any{
			"operation": "ceo_peer_scope",
		})
	}
}

// ceoTargetScope lets only a CEO actor touch a CEO target. Used for password
// resets where IT support may otherwise act on anyone.
func ceoTargetScope(actor, target *Account) error {
	if target == nil || target.Role != RoleCEO || actor.Role == RoleCEO {
		return nil
	}
	return ErrInsufficientPermissions.WithMetadata(map[string]any{
		"operation": "ceo_target_scope",
	})
}

func composeScopes(scopes ...func(actor, target *Account) error) func(actor, target *Account) error {
	return func(actor, target *Account) error {
		for _, scope := range scopes {
			if err := scope(actor, target); err != nil {
				return err
			}
		}
		return nil
	}
}

var operationRules = map[Operation]operationRule{
	OpViewAccounts: {
		roles: []Role{RoleCEO, RoleAdmin},
		scope: adminScope,
	},
	OpSuspendAccount: {
		roles:       []Role{RoleCEO, RoleAdmin},
		destructive: true,
		scope:       composeScopes(adminScope, ceoPeerScope(false)),
	},
	OpActivateAccount: {
		roles: []Role{RoleCEO, RoleAdmin},
		scope: composeScopes(adminScope, ceoPeerScope(true)),
	},
	OpDeleteAccount: {
		roles:       []Role{RoleCEO, RoleAdmin},
		destructive: true,
		scope:       composeScopes(adminScope, ceoPeerScope(false)),
	},
	OpResetPassword: {
		roles: []Role{RoleCEO, RoleAdmin, RoleITSupport},
		scope: ceoTargetScope,
	},
	OpManageListings: {
		roles: []Role{RoleCEO, RoleAdmin, RoleCreator, RoleServiceSeller},
	},
	OpManageSettings: {
		roles: []Role{RoleCEO, RoleAdmin},
	},
}

// Guard is the single authorization decision point. It never mutates state;
// a nil return means allow, anything else is the denial to surface.
type Guard struct{}

func NewGuard() Guard {
	return Guard{}
}

// Authorize classifies an actor's attempt to run an operation, optionally
// against a target account. Unknown roles and unknown operations deny.
func (g Guard) Authorize(actor *Account, op Operation, target *Account) error {
	if actor == nil {
		return ErrInsufficientPermissions
	}

	rule, ok := operationRules[op]
	if !ok {
		return ErrInsufficientPermissions.WithMetadata(map[string]any{
			"operation": string(op),
		})
	}

	allowed := false
	for _, role := range rule.roles {
		if actor.Role == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInsufficientPermissions.WithMetadata(map[string]any{
			"operation": string(op),
			"role":      actor.Role,
		})
	}

	if rule.destructive && target != nil && actor.ID == target.ID {
		return ErrInsufficientPermissions.WithMetadata(map[string]any{
			"operation": string(op),
			"reason":    "self target",
		})
	}

	if rule.scope != nil {
		if err := rule.scope(actor, target); err != nil {
			return err
		}
	}

	return nil
}

// ApprovalGate denies general resource access to accounts that still sit in
// the approval workflow. Public and CEO accounts pass unconditionally.
func (g Guard) ApprovalGate(actor *Account) error {
	if actor == nil {
		return ErrInsufficientPermissions
	}

	if actor.Role.AutoApproved() {
		return nil
	}

	if !actor.IsApproved {
		return ErrPendingApproval.WithMetadata(map[string]any{
			"role": actor.Role,
		})
	}

	return nil
}
