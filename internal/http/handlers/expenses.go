package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fincrest/expensehub/internal/domain/expense"
	"github.com/fincrest/expensehub/internal/domain/user"
	"github.com/fincrest/expensehub/internal/http/middlewares"
	"github.com/fincrest/expensehub/internal/notifications"
	"github.com/fincrest/expensehub/internal/observability"
)

type ExpensesStore interface {
	Create(ctx context.Context, req expense.CreateExpenseRequest) (expense.Expense, error)
	GetByID(ctx context.Context, id string) (expense.Expense, error)
	List(ctx context.Context, filter expense.ListFilter) ([]expense.Expense, int, error)
	Update(ctx context.Context, actor expense.Actor, id string, req expense.UpdateExpenseRequest) (expense.Expense, error)
	Delete(ctx context.Context, actor expense.Actor, id string) error
	Approve(ctx context.Context, actor expense.Actor, id string) (expense.Expense, error)
	Reject(ctx context.Context, actor expense.Actor, id string, reason string) (expense.Expense, error)
}

type ExpensesHandler struct {
	store    ExpensesStore
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger
}

func NewExpensesHandler(store ExpensesStore, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *ExpensesHandler {
	return &ExpensesHandler{store: store, notifier: notifier, prom: prom, log: log}
}

func (h *ExpensesHandler) Create(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req expense.CreateExpenseRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if err := expense.ValidateReceiptDate(req.ReceiptDate, time.Now()); err != nil {
		RespondBadRequest(ctx, "invalid_receipt_date", "Receipt date cannot be in the future", nil)
		return
	}

	req.UserID = actor.UserID

	e, err := h.store.Create(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, expense.ErrCategoryNotFound) {
			RespondBadRequest(ctx, "invalid_category", "Invalid category", nil)
			return
		}
		h.log.Error("expense create failed", "error", err, "user_id", actor.UserID)
		RespondInternal(ctx, "Failed to create expense")
		return
	}

	ctx.JSON(http.StatusCreated, e)
}

func (h *ExpensesHandler) List(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	filter, ok := h.parseListFilter(ctx)
	if !ok {
		return
	}

	// employees only ever see their own expenses
	if !actor.IsManager() {
		filter.UserID = &actor.UserID
	}

	items, total, err := h.store.List(ctx.Request.Context(), filter)
	if err != nil {
		h.log.Error("expense list failed", "error", err)
		RespondInternal(ctx, "Failed to list expenses")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// ListPending is the manager review queue: the list endpoint with the
// status filter pinned to pending.
func (h *ExpensesHandler) ListPending(ctx *gin.Context) {
	filter, ok := h.parseListFilter(ctx)
	if !ok {
		return
	}

	pending := expense.StatusPending
	filter.Status = &pending

	items, total, err := h.store.List(ctx.Request.Context(), filter)
	if err != nil {
		h.log.Error("pending list failed", "error", err)
		RespondInternal(ctx, "Failed to list expenses")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *ExpensesHandler) parseListFilter(ctx *gin.Context) (expense.ListFilter, bool) {
	var filter expense.ListFilter

	if s := ctx.Query("status"); s != "" {
		st := expense.Status(s)
		if !expense.ValidStatus(st) {
			RespondBadRequest(ctx, "invalid_status", "Invalid status filter", nil)
			return filter, false
		}
		filter.Status = &st
	}

	if c := ctx.Query("category_id"); c != "" {
		filter.CategoryID = &c
	}

	if u := ctx.Query("user_id"); u != "" {
		filter.UserID = &u
	}

	for _, q := range []struct {
		name string
		dst  **string
	}{
		{"from_date", &filter.FromDate},
		{"to_date", &filter.ToDate},
	} {
		if v := ctx.Query(q.name); v != "" {
			if _, err := time.Parse(expense.ReceiptDateLayout, v); err != nil {
				RespondBadRequest(ctx, "invalid_date", "Dates must be YYYY-MM-DD", nil)
				return filter, false
			}
			*q.dst = &v
		}
	}

	filter.Limit, _ = strconv.Atoi(ctx.Query("limit"))
	filter.Offset, _ = strconv.Atoi(ctx.Query("offset"))
	filter.Normalize()

	return filter, true
}

func (h *ExpensesHandler) Get(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Expense not found")
		return
	}

	e, err := h.store.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			RespondNotFound(ctx, "Expense not found")
			return
		}
		h.log.Error("expense fetch failed", "error", err, "expense_id", id)
		RespondInternal(ctx, "Failed to load expense")
		return
	}

	if err := expense.Authorize(actor, expense.OpView, &e); err != nil {
		RespondForbidden(ctx, "Access denied")
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *ExpensesHandler) Update(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Expense not found")
		return
	}

	var req expense.UpdateExpenseRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if err := expense.ValidateReceiptDate(req.ReceiptDate, time.Now()); err != nil {
		RespondBadRequest(ctx, "invalid_receipt_date", "Receipt date cannot be in the future", nil)
		return
	}

	e, err := h.store.Update(ctx.Request.Context(), actor, id, req)
	if err != nil {
		h.respondModifyError(ctx, err, id)
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *ExpensesHandler) Delete(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Expense not found")
		return
	}

	if err := h.store.Delete(ctx.Request.Context(), actor, id); err != nil {
		h.respondModifyError(ctx, err, id)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ExpensesHandler) respondModifyError(ctx *gin.Context, err error, id string) {
	switch {
	case errors.Is(err, expense.ErrNotFound):
		RespondNotFound(ctx, "Expense not found")
	case errors.Is(err, expense.ErrNotOwner):
		RespondForbidden(ctx, "Access denied")
	case errors.Is(err, expense.ErrNotPending):
		RespondBadRequest(ctx, "not_pending", "Cannot modify approved or rejected expenses", nil)
	case errors.Is(err, expense.ErrCategoryNotFound):
		RespondBadRequest(ctx, "invalid_category", "Invalid category", nil)
	default:
		h.log.Error("expense modify failed", "error", err, "expense_id", id)
		RespondInternal(ctx, "Failed to modify expense")
	}
}

func (h *ExpensesHandler) Approve(ctx *gin.Context) {
	h.review(ctx, "approve", func(c context.Context, actor expense.Actor, id string) (expense.Expense, error) {
		return h.store.Approve(c, actor, id)
	})
}

func (h *ExpensesHandler) Reject(ctx *gin.Context) {
	var req expense.RejectRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.review(ctx, "reject", func(c context.Context, actor expense.Actor, id string) (expense.Expense, error) {
		return h.store.Reject(c, actor, id, req.Reason)
	})
}

func (h *ExpensesHandler) review(ctx *gin.Context, op string, do func(context.Context, expense.Actor, string) (expense.Expense, error)) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	// the route guard keeps employees out; this is the backstop
	if actor.Role != user.RoleManager {
		RespondForbidden(ctx, "Manager access required")
		return
	}

	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Expense not found")
		return
	}

	e, err := do(ctx.Request.Context(), actor, id)
	if err != nil {
		h.countReview(op, "error")

		switch {
		case errors.Is(err, expense.ErrNotFound):
			RespondNotFound(ctx, "Expense not found")
		case errors.Is(err, expense.ErrSelfReview):
			RespondBadRequest(ctx, "self_review", "Cannot "+op+" your own expenses", nil)
		case errors.Is(err, expense.ErrNotPending):
			RespondBadRequest(ctx, "not_pending", "Expense is not pending", nil)
		case errors.Is(err, expense.ErrEmptyReason):
			RespondBadRequest(ctx, "empty_reason", "Rejection reason is required", nil)
		default:
			h.log.Error("expense review failed", "error", err, "expense_id", id, "op", op)
			RespondInternal(ctx, "Failed to review expense")
		}
		return
	}

	h.countReview(op, "ok")
	h.notifyReviewed(ctx.Request.Context(), e)

	ctx.JSON(http.StatusOK, e)
}

func (h *ExpensesHandler) countReview(op, outcome string) {
	if h.prom != nil {
		h.prom.ReviewsTotal.WithLabelValues(op, outcome).Inc()
	}
}

func (h *ExpensesHandler) notifyReviewed(ctx context.Context, e expense.Expense) {
	if h.notifier == nil {
		return
	}

	input := notifications.ExpenseReviewedInput{
		ExpenseID:   e.ID,
		SubmitterID: e.UserID,
		Status:      string(e.Status),
		Amount:      e.Amount,
	}
	if e.ReviewedBy != nil {
		input.ReviewerID = *e.ReviewedBy
	}
	if e.RejectionReason != nil {
		input.Reason = *e.RejectionReason
	}

	if err := h.notifier.SendExpenseReviewed(ctx, input); err != nil {
		h.log.Warn("review notification failed", "error", err, "expense_id", e.ID)
	}
}
