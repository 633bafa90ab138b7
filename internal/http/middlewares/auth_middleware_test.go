package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fincrest/expensehub/internal/auth"
	"github.com/fincrest/expensehub/internal/domain/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return f.claims, f.err
}

func protectedRouter(v TokenVerifier, requiredRole string) *gin.Engine {
	mw := NewAuthMiddleware(v)

	r := gin.New()
	g := r.Group("/", mw.RequireAuth())
	if requiredRole != "" {
		g.Use(mw.RequireRole(requiredRole))
	}
	g.GET("/ping", func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r
}

func get(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	ok := &fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: user.RoleEmployee}}
	bad := &fakeVerifier{err: errors.New("expired")}

	tests := []struct {
		name     string
		verifier TokenVerifier
		header   string
		want     int
	}{
		{"no header", ok, "", http.StatusUnauthorized},
		{"wrong scheme", ok, "Basic abc", http.StatusUnauthorized},
		{"bearer with empty token", ok, "Bearer ", http.StatusUnauthorized},
		{"invalid token", bad, "Bearer sometoken", http.StatusUnauthorized},
		{"valid token", ok, "Bearer sometoken", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(protectedRouter(tc.verifier, ""), tc.header)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	employee := &fakeVerifier{claims: &auth.Claims{UserID: "u1", Role: user.RoleEmployee}}
	manager := &fakeVerifier{claims: &auth.Claims{UserID: "m1", Role: user.RoleManager}}

	w := get(protectedRouter(employee, user.RoleManager), "Bearer t")
	if w.Code != http.StatusForbidden {
		t.Fatalf("employee on manager route: status = %d, want 403", w.Code)
	}

	w = get(protectedRouter(manager, user.RoleManager), "Bearer t")
	if w.Code != http.StatusOK {
		t.Fatalf("manager on manager route: status = %d, want 200", w.Code)
	}
}

func TestActorFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := ActorFromContext(c); ok {
		t.Fatal("empty context should not yield an actor")
	}

	SetIdentity(c, "u1", "u1@example.com", user.RoleManager)

	actor, ok := ActorFromContext(c)
	if !ok || actor.UserID != "u1" || !actor.IsManager() {
		t.Fatalf("actor = %+v, ok = %v", actor, ok)
	}
}
