package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fincrest/expensehub/internal/domain/expense"
	"github.com/fincrest/expensehub/internal/domain/user"
	"github.com/fincrest/expensehub/internal/http/middlewares"
	"github.com/fincrest/expensehub/internal/notifications"
	"github.com/fincrest/expensehub/internal/repo/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.ExpenseReviewedInput
}

func (n *recordingNotifier) SendExpenseReviewed(ctx context.Context, in notifications.ExpenseReviewedInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
	return nil
}

// headerIdentity lets a single router serve requests from different
// callers; tests set X-Test-User and X-Test-Role per request.
func headerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-Test-User")
		role := c.GetHeader("X-Test-Role")
		if uid != "" {
			middlewares.SetIdentity(c, uid, uid+"@example.com", role)
		}
		c.Next()
	}
}

type expensesEnv struct {
	store    *memory.Store
	notifier *recordingNotifier
	router   *gin.Engine
	catID    string
}

func newExpensesEnv(t *testing.T) *expensesEnv {
	t.Helper()

	store := memory.NewStore()

	cat, err := store.Categories().Create(context.Background(), "Travel")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}

	notifier := &recordingNotifier{}
	h := NewExpensesHandler(store.Expenses(), notifier, nil, testLogger())

	r := gin.New()
	g := r.Group("/expenses", headerIdentity())
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/pending", h.ListPending)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)

	return &expensesEnv{store: store, notifier: notifier, router: r, catID: cat.ID}
}

func (env *expensesEnv) do(t *testing.T, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	req.Header.Set("X-Test-User", userID)
	req.Header.Set("X-Test-Role", role)

	return performRequest(env.router, req)
}

func (env *expensesEnv) submit(t *testing.T, userID string) string {
	t.Helper()

	w := env.do(t, http.MethodPost, "/expenses", userID, user.RoleEmployee, gin.H{
		"category_id":  env.catID,
		"amount":       42.50,
		"description":  "airport taxi",
		"receipt_date": "2026-01-10",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: status = %d, body = %s", w.Code, w.Body.String())
	}

	id, _ := decodeBody(t, w)["id"].(string)
	if id == "" {
		t.Fatal("created expense has no id")
	}
	return id
}

func TestExpenseCreate(t *testing.T) {
	env := newExpensesEnv(t)

	w := env.do(t, http.MethodPost, "/expenses", "u1", user.RoleEmployee, gin.H{
		"category_id":  env.catID,
		"amount":       10.0,
		"description":  "lunch",
		"receipt_date": "2026-01-02",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["status"] != string(expense.StatusPending) {
		t.Fatalf("new expense status = %v, want pending", body["status"])
	}
	if body["user_id"] != "u1" {
		t.Fatalf("owner = %v, want the caller", body["user_id"])
	}
}

func TestExpenseCreateRejectsFutureDate(t *testing.T) {
	env := newExpensesEnv(t)

	w := env.do(t, http.MethodPost, "/expenses", "u1", user.RoleEmployee, gin.H{
		"category_id":  env.catID,
		"amount":       10.0,
		"description":  "time travel",
		"receipt_date": "2999-01-01",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Receipt date cannot be in the future" {
		t.Fatalf("message = %q", msg)
	}
}

func TestExpenseCreateInvalidCategory(t *testing.T) {
	env := newExpensesEnv(t)

	w := env.do(t, http.MethodPost, "/expenses", "u1", user.RoleEmployee, gin.H{
		"category_id":  "33333333-3333-3333-3333-333333333333",
		"amount":       10.0,
		"description":  "lunch",
		"receipt_date": "2026-01-02",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Invalid category" {
		t.Fatalf("message = %q", msg)
	}
}

func TestExpenseListScoping(t *testing.T) {
	env := newExpensesEnv(t)

	env.submit(t, "u1")
	env.submit(t, "u2")

	// employees only see their own, even when asking for someone else's
	w := env.do(t, http.MethodGet, "/expenses?user_id=u2", "u1", user.RoleEmployee, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := decodeBody(t, w)
	if total := body["total"].(float64); total != 1 {
		t.Fatalf("employee sees %v expenses, want 1", total)
	}

	items := body["items"].([]any)
	first := items[0].(map[string]any)
	if first["user_id"] != "u1" {
		t.Fatalf("employee saw a foreign expense: %v", first["user_id"])
	}

	// managers see everything
	w = env.do(t, http.MethodGet, "/expenses", "mgr", user.RoleManager, nil)
	body = decodeBody(t, w)
	if total := body["total"].(float64); total != 2 {
		t.Fatalf("manager sees %v expenses, want 2", total)
	}
}

func TestExpenseListLimitClamp(t *testing.T) {
	env := newExpensesEnv(t)
	env.submit(t, "u1")

	w := env.do(t, http.MethodGet, "/expenses?limit=5000", "u1", user.RoleEmployee, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := decodeBody(t, w)
	if limit := body["limit"].(float64); limit != float64(expense.MaxListLimit) {
		t.Fatalf("limit = %v, want %d", limit, expense.MaxListLimit)
	}
}

func TestExpenseListBadStatus(t *testing.T) {
	env := newExpensesEnv(t)

	w := env.do(t, http.MethodGet, "/expenses?status=bogus", "u1", user.RoleEmployee, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestExpenseGetAccessDenied(t *testing.T) {
	env := newExpensesEnv(t)
	id := env.submit(t, "u1")

	w := env.do(t, http.MethodGet, "/expenses/"+id, "u2", user.RoleEmployee, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Access denied" {
		t.Fatalf("message = %q", msg)
	}

	// a manager can read it
	w = env.do(t, http.MethodGet, "/expenses/"+id, "mgr", user.RoleManager, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manager read: status = %d", w.Code)
	}
}

func TestExpenseGetBogusID(t *testing.T) {
	env := newExpensesEnv(t)

	w := env.do(t, http.MethodGet, "/expenses/not-a-uuid", "u1", user.RoleEmployee, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestExpenseUpdateAfterApproval(t *testing.T) {
	env := newExpensesEnv(t)
	id := env.submit(t, "u1")

	w := env.do(t, http.MethodPost, "/expenses/"+id+"/approve", "mgr", user.RoleManager, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPut, "/expenses/"+id, "u1", user.RoleEmployee, gin.H{
		"category_id":  env.catID,
		"amount":       99.0,
		"description":  "amended",
		"receipt_date": "2026-01-09",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Cannot modify approved or rejected expenses" {
		t.Fatalf("message = %q", msg)
	}
}

func TestExpenseDelete(t *testing.T) {
	env := newExpensesEnv(t)
	id := env.submit(t, "u1")

	if w := env.do(t, http.MethodDelete, "/expenses/"+id, "u2", user.RoleEmployee, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status = %d, want 403", w.Code)
	}

	if w := env.do(t, http.MethodDelete, "/expenses/"+id, "u1", user.RoleEmployee, nil); w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: status = %d", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/expenses/"+id, "u1", user.RoleEmployee, nil); w.Code != http.StatusNotFound {
		t.Fatalf("after delete: status = %d, want 404", w.Code)
	}
}

func TestSelfApproveBlocked(t *testing.T) {
	env := newExpensesEnv(t)

	// a manager submitting an expense of their own
	w := env.do(t, http.MethodPost, "/expenses", "mgr", user.RoleManager, gin.H{
		"category_id":  env.catID,
		"amount":       10.0,
		"description":  "own claim",
		"receipt_date": "2026-01-02",
	})
	id, _ := decodeBody(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/expenses/"+id+"/approve", "mgr", user.RoleManager, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Cannot approve your own expenses" {
		t.Fatalf("message = %q", msg)
	}

	w = env.do(t, http.MethodPost, "/expenses/"+id+"/reject", "mgr", user.RoleManager, gin.H{"reason": "nope"})
	if msg := errorMessage(t, w); msg != "Cannot reject your own expenses" {
		t.Fatalf("message = %q", msg)
	}
}

func TestApproveNotifiesSubmitter(t *testing.T) {
	env := newExpensesEnv(t)
	id := env.submit(t, "u1")

	w := env.do(t, http.MethodPost, "/expenses/"+id+"/approve", "mgr", user.RoleManager, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["status"] != string(expense.StatusApproved) {
		t.Fatalf("status = %v, want approved", body["status"])
	}
	if body["reviewed_by"] != "mgr" {
		t.Fatalf("reviewed_by = %v", body["reviewed_by"])
	}

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].SubmitterID != "u1" {
		t.Fatalf("notification not delivered to submitter: %+v", env.notifier.sent)
	}
}

func TestRejectRequiresReasonBody(t *testing.T) {
	env := newExpensesEnv(t)
	id := env.submit(t, "u1")

	w := env.do(t, http.MethodPost, "/expenses/"+id+"/reject", "mgr", user.RoleManager, gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/expenses/"+id+"/reject", "mgr", user.RoleManager, gin.H{"reason": "blurry receipt"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["rejection_reason"] != "blurry receipt" {
		t.Fatalf("rejection_reason = %v", body["rejection_reason"])
	}
}

func TestReviewAlreadySettled(t *testing.T) {
	env := newExpensesEnv(t)
	id := env.submit(t, "u1")

	env.do(t, http.MethodPost, "/expenses/"+id+"/approve", "mgr", user.RoleManager, nil)

	w := env.do(t, http.MethodPost, "/expenses/"+id+"/approve", "mgr2", user.RoleManager, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(t, w); msg != "Expense is not pending" {
		t.Fatalf("message = %q", msg)
	}
}

func TestPendingQueue(t *testing.T) {
	env := newExpensesEnv(t)

	a := env.submit(t, "u1")
	env.submit(t, "u2")

	env.do(t, http.MethodPost, "/expenses/"+a+"/approve", "mgr", user.RoleManager, nil)

	w := env.do(t, http.MethodGet, "/expenses/pending", "mgr", user.RoleManager, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := decodeBody(t, w)
	if total := body["total"].(float64); total != 1 {
		t.Fatalf("pending total = %v, want 1", total)
	}
}
