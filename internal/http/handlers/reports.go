package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fincrest/expensehub/internal/domain/expense"
	"github.com/fincrest/expensehub/internal/domain/report"
	"github.com/fincrest/expensehub/internal/http/middlewares"
)

type ReportsStore interface {
	SummaryByCategory(ctx context.Context, w report.Window, ownerID *string) ([]report.CategoryRow, error)
	SummaryByUser(ctx context.Context, w report.Window) ([]report.UserRow, error)
	SummaryByStatus(ctx context.Context, w report.Window, ownerID *string) ([]report.StatusRow, error)
}

type ReportsHandler struct {
	store ReportsStore
	log   *slog.Logger
}

func NewReportsHandler(store ReportsStore, log *slog.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, log: log}
}

// resolveWindow parses the optional from_date/to_date query params and
// falls back to the current calendar month.
func (h *ReportsHandler) resolveWindow(ctx *gin.Context) (report.Window, bool) {
	from := ctx.Query("from_date")
	to := ctx.Query("to_date")

	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(expense.ReceiptDateLayout, v); err != nil {
			RespondBadRequest(ctx, "invalid_date", "Dates must be YYYY-MM-DD", nil)
			return report.Window{}, false
		}
	}

	return report.Resolve(from, to, time.Now()), true
}

// ownerScope returns the owner filter for the requesting user: nil for
// managers, the caller's own id for employees.
func ownerScope(actor expense.Actor) *string {
	if actor.IsManager() {
		return nil
	}
	id := actor.UserID
	return &id
}

func (h *ReportsHandler) ByCategory(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	w, ok := h.resolveWindow(ctx)
	if !ok {
		return
	}

	items, err := h.store.SummaryByCategory(ctx.Request.Context(), w, ownerScope(actor))
	if err != nil {
		h.log.Error("category report failed", "error", err)
		RespondInternal(ctx, "Failed to build report")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":       items,
		"grand_total": report.CategoryGrandTotal(items),
		"from_date":   w.From,
		"to_date":     w.To,
	})
}

func (h *ReportsHandler) ByUser(ctx *gin.Context) {
	if _, ok := middlewares.ActorFromContext(ctx); !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	w, ok := h.resolveWindow(ctx)
	if !ok {
		return
	}

	items, err := h.store.SummaryByUser(ctx.Request.Context(), w)
	if err != nil {
		h.log.Error("user report failed", "error", err)
		RespondInternal(ctx, "Failed to build report")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":       items,
		"grand_total": report.UserGrandTotal(items),
		"from_date":   w.From,
		"to_date":     w.To,
	})
}

func (h *ReportsHandler) ByStatus(ctx *gin.Context) {
	actor, ok := middlewares.ActorFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	w, ok := h.resolveWindow(ctx)
	if !ok {
		return
	}

	items, err := h.store.SummaryByStatus(ctx.Request.Context(), w, ownerScope(actor))
	if err != nil {
		h.log.Error("status report failed", "error", err)
		RespondInternal(ctx, "Failed to build report")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items":       items,
		"grand_total": report.StatusGrandTotal(items),
		"from_date":   w.From,
		"to_date":     w.To,
	})
}
