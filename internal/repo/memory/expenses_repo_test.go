package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincrest/expensehub/internal/domain/expense"
	"github.com/fincrest/expensehub/internal/domain/user"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	store := NewStore()

	cat, err := store.Categories().Create(context.Background(), "Travel")
	require.NoError(t, err)

	return store, cat.ID
}

func submit(t *testing.T, store *Store, userID, categoryID, date string, amount float64) expense.Expense {
	t.Helper()

	e, err := store.Expenses().Create(context.Background(), expense.CreateExpenseRequest{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      amount,
		Description: "test expense",
		ReceiptDate: date,
	})
	require.NoError(t, err)

	return e
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Expenses().Create(context.Background(), expense.CreateExpenseRequest{
		UserID:      "u1",
		CategoryID:  "22222222-2222-2222-2222-222222222222",
		Amount:      10,
		Description: "x",
		ReceiptDate: "2026-01-01",
	})
	assert.ErrorIs(t, err, expense.ErrCategoryNotFound)
}

func TestListOrderingAndPagination(t *testing.T) {
	store, catID := newTestStore(t)

	for i, date := range []string{"2026-01-01", "2026-01-03", "2026-01-02"} {
		submit(t, store, "u1", catID, date, float64(i+1))
	}

	items, total, err := store.Expenses().List(context.Background(), expense.ListFilter{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "2026-01-03", items[0].ReceiptDate)
	assert.Equal(t, "2026-01-02", items[1].ReceiptDate)

	items, total, err = store.Expenses().List(context.Background(), expense.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "2026-01-01", items[0].ReceiptDate)
}

func TestListFilters(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	mine := submit(t, store, "u1", catID, "2026-01-05", 10)
	submit(t, store, "u2", catID, "2026-01-06", 20)

	owner := "u1"
	items, total, err := store.Expenses().List(ctx, expense.ListFilter{UserID: &owner})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, mine.ID, items[0].ID)

	from := "2026-01-06"
	items, _, err = store.Expenses().List(ctx, expense.ListFilter{FromDate: &from})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "u2", items[0].UserID)
}

func TestUpdateRequiresOwnerAndPending(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	e := submit(t, store, "u1", catID, "2026-01-05", 10)

	req := expense.UpdateExpenseRequest{
		CategoryID:  catID,
		Amount:      99,
		Description: "updated",
		ReceiptDate: "2026-01-04",
	}

	_, err := store.Expenses().Update(ctx, expense.Actor{UserID: "u2", Role: user.RoleEmployee}, e.ID, req)
	assert.ErrorIs(t, err, expense.ErrNotOwner)

	got, err := store.Expenses().Update(ctx, expense.Actor{UserID: "u1", Role: user.RoleEmployee}, e.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Amount)

	_, err = store.Expenses().Approve(ctx, expense.Actor{UserID: "mgr", Role: user.RoleManager}, e.ID)
	require.NoError(t, err)

	_, err = store.Expenses().Update(ctx, expense.Actor{UserID: "u1", Role: user.RoleEmployee}, e.ID, req)
	assert.ErrorIs(t, err, expense.ErrNotPending)
}

func TestDeleteOnlyWhilePending(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	e := submit(t, store, "u1", catID, "2026-01-05", 10)

	_, err := store.Expenses().Reject(ctx, expense.Actor{UserID: "mgr", Role: user.RoleManager}, e.ID, "missing receipt")
	require.NoError(t, err)

	err = store.Expenses().Delete(ctx, expense.Actor{UserID: "u1", Role: user.RoleEmployee}, e.ID)
	assert.ErrorIs(t, err, expense.ErrNotPending)
}

func TestApproveSetsReviewFields(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	e := submit(t, store, "u1", catID, "2026-01-05", 10)

	got, err := store.Expenses().Approve(ctx, expense.Actor{UserID: "mgr", Role: user.RoleManager}, e.ID)
	require.NoError(t, err)

	assert.Equal(t, expense.StatusApproved, got.Status)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "mgr", *got.ReviewedBy)
	assert.NotNil(t, got.ReviewedAt)
	assert.Nil(t, got.RejectionReason)
}

func TestRejectRequiresReason(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	e := submit(t, store, "u1", catID, "2026-01-05", 10)

	_, err := store.Expenses().Reject(ctx, expense.Actor{UserID: "mgr", Role: user.RoleManager}, e.ID, "   ")
	assert.ErrorIs(t, err, expense.ErrEmptyReason)

	got, err := store.Expenses().Reject(ctx, expense.Actor{UserID: "mgr", Role: user.RoleManager}, e.ID, "no receipt")
	require.NoError(t, err)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "no receipt", *got.RejectionReason)
}

func TestSelfReviewBlocked(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	e := submit(t, store, "mgr", catID, "2026-01-05", 10)

	_, err := store.Expenses().Approve(ctx, expense.Actor{UserID: "mgr", Role: user.RoleManager}, e.ID)
	assert.ErrorIs(t, err, expense.ErrSelfReview)
}

// Two managers racing to settle the same expense: exactly one wins, the
// loser sees the not-pending error, and the stored outcome is the
// winner's.
func TestConcurrentReviewSettlesOnce(t *testing.T) {
	store, catID := newTestStore(t)
	ctx := context.Background()

	e := submit(t, store, "u1", catID, "2026-01-05", 10)

	const racers = 8

	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		go func(i int) {
			actor := expense.Actor{UserID: fmt.Sprintf("mgr-%d", i), Role: user.RoleManager}
			if i%2 == 0 {
				_, err := store.Expenses().Approve(ctx, actor, e.ID)
				errs <- err
			} else {
				_, err := store.Expenses().Reject(ctx, actor, e.ID, "duplicate claim")
				errs <- err
			}
		}(i)
	}

	var wins, losses int
	for i := 0; i < racers; i++ {
		err := <-errs
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, expense.ErrNotPending)
		losses++
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)

	got, err := store.Expenses().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.NotEqual(t, expense.StatusPending, got.Status)
	assert.NotNil(t, got.ReviewedBy)
}
