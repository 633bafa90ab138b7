package expense

import "github.com/fincrest/expensehub/internal/domain/user"

// Actor is the caller identity every operation runs under.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsManager() bool {
	return a.Role == user.RoleManager
}

// Op names the guarded operations on an expense.
type Op int

const (
	OpView Op = iota
	OpModify
	OpDelete
	OpReview
)

// Authorize is the single authorization predicate for every expense
// operation. Existence is the store's problem (ErrNotFound before the
// guard ever runs); the guard then checks, in order: ownership, the
// self-review rule, and the lifecycle state. The first violated rule wins
// so error messages stay deterministic when several rules are broken at
// once.
//
//	view:           managers see everything, employees only their own
//	modify/delete:  owner only (role is irrelevant), pending only
//	review:         never the owner, pending only (role is enforced
//	                upstream by the manager-only route guard)
func Authorize(actor Actor, op Op, e *Expense) error {
	switch op {
	case OpView:
		if !actor.IsManager() && e.UserID != actor.UserID {
			return ErrNotOwner
		}

	case OpModify, OpDelete:
		if e.UserID != actor.UserID {
			return ErrNotOwner
		}

		if e.Status != StatusPending {
			return ErrNotPending
		}

	case OpReview:
		if e.UserID == actor.UserID {
			return ErrSelfReview
		}

		if e.Status != StatusPending {
			return ErrNotPending
		}
	}

	return nil
}
