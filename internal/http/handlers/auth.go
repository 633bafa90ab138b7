package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fincrest/expensehub/internal/domain/user"
	"github.com/fincrest/expensehub/internal/http/middlewares"
	"github.com/fincrest/expensehub/internal/security"
)

type UsersStore interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email, role string) (string, error)
}

type AuthHandler struct {
	users  UsersStore
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthHandler(users UsersStore, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, log: log}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	role := req.Role
	if role == "" {
		role = user.RoleEmployee
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		h.log.Error("password hash failed", "error", err)
		RespondInternal(ctx, "Failed to register")
		return
	}

	u, err := h.users.Create(ctx.Request.Context(), req.Email, hash, req.Name, role)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(ctx, "email_taken", "Email already registered", nil)
			return
		}
		h.log.Error("user create failed", "error", err)
		RespondInternal(ctx, "Failed to register")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.GetByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
			return
		}
		h.log.Error("user lookup failed", "error", err)
		RespondInternal(ctx, "Failed to log in")
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	token, err := h.tokens.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		h.log.Error("token sign failed", "error", err)
		RespondInternal(ctx, "Failed to log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         u,
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		h.log.Error("user lookup failed", "error", err)
		RespondInternal(ctx, "Failed to load profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}
