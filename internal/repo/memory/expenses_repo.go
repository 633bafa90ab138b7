package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fincrest/expensehub/internal/domain/expense"
)

type ExpensesRepo struct {
	store *Store
}

func (r *ExpensesRepo) Create(ctx context.Context, req expense.CreateExpenseRequest) (expense.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.categories[req.CategoryID]
	if !ok {
		return expense.Expense{}, expense.ErrCategoryNotFound
	}

	e := expense.NewFromCreateRequest(req)
	e.CategoryName = c.Name

	r.store.expenses[e.ID] = e

	return e, nil
}

func (r *ExpensesRepo) GetByID(ctx context.Context, id string) (expense.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.expenses[id]
	if !ok {
		return expense.Expense{}, expense.ErrNotFound
	}

	return e, nil
}

func matches(e expense.Expense, f expense.ListFilter) bool {
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.CategoryID != nil && e.CategoryID != *f.CategoryID {
		return false
	}
	if f.FromDate != nil && e.ReceiptDate < *f.FromDate {
		return false
	}
	if f.ToDate != nil && e.ReceiptDate > *f.ToDate {
		return false
	}
	return true
}

func (r *ExpensesRepo) List(ctx context.Context, filter expense.ListFilter) ([]expense.Expense, int, error) {
	filter.Normalize()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	all := make([]expense.Expense, 0, len(r.store.expenses))

	for _, e := range r.store.expenses {
		if matches(e, filter) {
			all = append(all, e)
		}
	}

	// receipt date descending, most recent submission first on ties
	sort.Slice(all, func(i, j int) bool {
		if all[i].ReceiptDate != all[j].ReceiptDate {
			return all[i].ReceiptDate > all[j].ReceiptDate
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)

	if filter.Offset >= total {
		return []expense.Expense{}, total, nil
	}

	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	return all[filter.Offset:end], total, nil
}

func (r *ExpensesRepo) Update(ctx context.Context, actor expense.Actor, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.expenses[id]
	if !ok {
		return expense.Expense{}, expense.ErrNotFound
	}

	if err := expense.Authorize(actor, expense.OpModify, &e); err != nil {
		return expense.Expense{}, err
	}

	c, ok := r.store.categories[req.CategoryID]
	if !ok {
		return expense.Expense{}, expense.ErrCategoryNotFound
	}

	e.CategoryID = req.CategoryID
	e.CategoryName = c.Name
	e.Amount = req.Amount
	e.Description = req.Description
	e.ReceiptDate = req.ReceiptDate
	e.UpdatedAt = time.Now().UTC()

	r.store.expenses[id] = e

	return e, nil
}

func (r *ExpensesRepo) Delete(ctx context.Context, actor expense.Actor, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.expenses[id]
	if !ok {
		return expense.ErrNotFound
	}

	if err := expense.Authorize(actor, expense.OpDelete, &e); err != nil {
		return err
	}

	delete(r.store.expenses, id)

	return nil
}

func (r *ExpensesRepo) Approve(ctx context.Context, actor expense.Actor, id string) (expense.Expense, error) {
	return r.review(actor, id, expense.StatusApproved, nil)
}

func (r *ExpensesRepo) Reject(ctx context.Context, actor expense.Actor, id string, reason string) (expense.Expense, error) {
	if strings.TrimSpace(reason) == "" {
		return expense.Expense{}, expense.ErrEmptyReason
	}

	return r.review(actor, id, expense.StatusRejected, &reason)
}

func (r *ExpensesRepo) review(actor expense.Actor, id string, to expense.Status, reason *string) (expense.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.expenses[id]
	if !ok {
		return expense.Expense{}, expense.ErrNotFound
	}

	if err := expense.Authorize(actor, expense.OpReview, &e); err != nil {
		return expense.Expense{}, err
	}

	now := time.Now().UTC()
	reviewer := actor.UserID

	e.Status = to
	e.ReviewedBy = &reviewer
	e.ReviewedAt = &now
	e.RejectionReason = reason
	e.UpdatedAt = now

	r.store.expenses[id] = e

	return e, nil
}
