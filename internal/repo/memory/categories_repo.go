package memory

import (
	"context"
	"sort"
	"time"

	"github.com/fincrest/expensehub/internal/domain/category"
	"github.com/google/uuid"
)

type CategoriesRepo struct {
	store *Store
}

func (r *CategoriesRepo) Create(ctx context.Context, name string) (category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, c := range r.store.categories {
		if c.Name == name {
			return category.Category{}, category.ErrNameTaken
		}
	}

	c := category.Category{
		ID:   uuid.NewString(),
		Name: name,
	}
	r.store.categories[c.ID] = c

	return c, nil
}

func (r *CategoriesRepo) List(ctx context.Context) ([]category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := make([]category.Category, 0, len(r.store.categories))

	for _, c := range r.store.categories {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

func (r *CategoriesRepo) GetByID(ctx context.Context, id string) (category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.categories[id]
	if !ok {
		return category.Category{}, category.ErrNotFound
	}

	return c, nil
}

func (r *CategoriesRepo) System(ctx context.Context) (category.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.systemCategoryLocked()
	if !ok {
		return category.Category{}, category.ErrNotFound
	}

	return c, nil
}

func (r *CategoriesRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.categories[id]
	if !ok {
		return category.ErrNotFound
	}

	if c.IsSystem {
		return category.ErrSystemCategory
	}

	system, ok := r.store.systemCategoryLocked()
	if !ok {
		return category.ErrNotFound
	}

	// reassign then remove, all under one lock
	now := time.Now().UTC()

	for eid, e := range r.store.expenses {
		if e.CategoryID == id {
			e.CategoryID = system.ID
			e.CategoryName = system.Name
			e.UpdatedAt = now
			r.store.expenses[eid] = e
		}
	}

	delete(r.store.categories, id)

	return nil
}
