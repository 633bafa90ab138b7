package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fincrest/expensehub/internal/cache"
	"github.com/fincrest/expensehub/internal/domain/category"
)

const categoryListCacheKey = "categories:list"

type CategoriesStore interface {
	Create(ctx context.Context, name string) (category.Category, error)
	List(ctx context.Context) ([]category.Category, error)
	GetByID(ctx context.Context, id string) (category.Category, error)
	Delete(ctx context.Context, id string) error
}

type CategoriesHandler struct {
	store CategoriesStore
	cache *cache.Cache
	log   *slog.Logger
}

func NewCategoriesHandler(store CategoriesStore, c *cache.Cache, log *slog.Logger) *CategoriesHandler {
	return &CategoriesHandler{store: store, cache: c, log: log}
}

func (h *CategoriesHandler) List(ctx *gin.Context) {
	if h.cache != nil {
		if v, ok := h.cache.Get(categoryListCacheKey); ok {
			if cats, ok := v.([]category.Category); ok {
				RespondJSONWithETag(ctx, http.StatusOK, cats)
				return
			}
		}
	}

	cats, err := h.store.List(ctx.Request.Context())
	if err != nil {
		h.log.Error("category list failed", "error", err)
		RespondInternal(ctx, "Failed to list categories")
		return
	}

	if h.cache != nil {
		h.cache.Set(categoryListCacheKey, cats)
	}

	RespondJSONWithETag(ctx, http.StatusOK, cats)
}

func (h *CategoriesHandler) Create(ctx *gin.Context) {
	var req category.CreateCategoryRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cat, err := h.store.Create(ctx.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, category.ErrNameTaken) {
			RespondBadRequest(ctx, "category_exists", "Category already exists", nil)
			return
		}
		h.log.Error("category create failed", "error", err)
		RespondInternal(ctx, "Failed to create category")
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(categoryListCacheKey)
	}

	ctx.JSON(http.StatusCreated, cat)
}

func (h *CategoriesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "Category not found")
		return
	}

	err := h.store.Delete(ctx.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, category.ErrNotFound):
			RespondNotFound(ctx, "Category not found")
		case errors.Is(err, category.ErrSystemCategory):
			RespondBadRequest(ctx, "system_category", "Cannot delete system category", nil)
		default:
			h.log.Error("category delete failed", "error", err, "category_id", id)
			RespondInternal(ctx, "Failed to delete category")
		}
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(categoryListCacheKey)
	}

	ctx.Status(http.StatusNoContent)
}
