package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fincrest/expensehub/internal/domain/report"
	"github.com/fincrest/expensehub/internal/domain/user"
)

type fakeReports struct {
	lastWindow report.Window
	lastOwner  *string
	catRows    []report.CategoryRow
}

func (f *fakeReports) SummaryByCategory(ctx context.Context, w report.Window, ownerID *string) ([]report.CategoryRow, error) {
	f.lastWindow = w
	f.lastOwner = ownerID
	return f.catRows, nil
}

func (f *fakeReports) SummaryByUser(ctx context.Context, w report.Window) ([]report.UserRow, error) {
	f.lastWindow = w
	return nil, nil
}

func (f *fakeReports) SummaryByStatus(ctx context.Context, w report.Window, ownerID *string) ([]report.StatusRow, error) {
	f.lastWindow = w
	f.lastOwner = ownerID
	return nil, nil
}

func reportsRouter(store *fakeReports, userID, role string) *gin.Engine {
	h := NewReportsHandler(store, testLogger())

	r := gin.New()
	g := r.Group("/reports", identity(userID, role))
	g.GET("/summary", h.ByCategory)
	g.GET("/by-user", h.ByUser)
	g.GET("/by-status", h.ByStatus)
	return r
}

func TestReportSummaryGrandTotal(t *testing.T) {
	fake := &fakeReports{catRows: []report.CategoryRow{
		{Category: "Travel", Total: 100.50, Count: 3},
		{Category: "Meals", Total: 20.25, Count: 1},
	}}
	r := reportsRouter(fake, "mgr", user.RoleManager)

	w := doJSON(t, r, http.MethodGet, "/reports/summary?from_date=2026-01-01&to_date=2026-01-31", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := decodeBody(t, w)
	if gt := body["grand_total"].(float64); gt != 120.75 {
		t.Fatalf("grand_total = %v, want 120.75", gt)
	}
	if body["from_date"] != "2026-01-01" || body["to_date"] != "2026-01-31" {
		t.Fatalf("echoed window wrong: %v", body)
	}
	if fake.lastOwner != nil {
		t.Fatal("manager report should not be owner-scoped")
	}
}

func TestReportEmployeeScoped(t *testing.T) {
	fake := &fakeReports{}
	r := reportsRouter(fake, "emp-1", user.RoleEmployee)

	w := doJSON(t, r, http.MethodGet, "/reports/by-status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if fake.lastOwner == nil || *fake.lastOwner != "emp-1" {
		t.Fatalf("employee report must be scoped to the caller, got %v", fake.lastOwner)
	}
}

func TestReportDefaultWindow(t *testing.T) {
	fake := &fakeReports{}
	r := reportsRouter(fake, "mgr", user.RoleManager)

	w := doJSON(t, r, http.MethodGet, "/reports/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	want := report.Resolve("", "", time.Now())
	if fake.lastWindow != want {
		t.Fatalf("window = %+v, want current month %+v", fake.lastWindow, want)
	}
}

func TestReportBadDate(t *testing.T) {
	r := reportsRouter(&fakeReports{}, "mgr", user.RoleManager)

	w := doJSON(t, r, http.MethodGet, "/reports/summary?from_date=January", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
