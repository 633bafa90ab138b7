package postgres

import (
	"context"
	"errors"

	"github.com/fincrest/expensehub/internal/domain/category"
	"github.com/fincrest/expensehub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCategoriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{pool: pool, prom: prom}
}

func (r *CategoriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *CategoriesRepo) Create(ctx context.Context, name string) (category.Category, error) {
	c := category.Category{
		ID:   uuid.NewString(),
		Name: name,
	}

	err := r.observe("categories.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO categories (id, name, is_system) VALUES ($1, $2, FALSE)`,
			c.ID, c.Name,
		)
		return e
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return category.Category{}, category.ErrNameTaken
		}

		return category.Category{}, err
	}

	return c, nil
}

func (r *CategoriesRepo) List(ctx context.Context) ([]category.Category, error) {
	var out []category.Category

	err := r.observe("categories.list", func() error {
		rows, e := r.pool.Query(ctx,
			`SELECT id, name, is_system FROM categories ORDER BY name ASC`)
		if e != nil {
			return e
		}

		defer rows.Close()

		out = make([]category.Category, 0, 8)

		for rows.Next() {
			var c category.Category

			if e := rows.Scan(&c.ID, &c.Name, &c.IsSystem); e != nil {
				return e
			}

			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *CategoriesRepo) GetByID(ctx context.Context, id string) (category.Category, error) {
	var c category.Category

	err := r.observe("categories.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, is_system FROM categories WHERE id = $1`, id,
		).Scan(&c.ID, &c.Name, &c.IsSystem)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}

		return category.Category{}, err
	}

	return c, nil
}

// System returns the single protected category expenses are reassigned to.
func (r *CategoriesRepo) System(ctx context.Context) (category.Category, error) {
	var c category.Category

	err := r.observe("categories.system", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, is_system FROM categories WHERE is_system LIMIT 1`,
		).Scan(&c.ID, &c.Name, &c.IsSystem)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}

		return category.Category{}, err
	}

	return c, nil
}

// Delete removes a non-system category. Every expense referencing it is
// moved to the system category first; reassign and delete commit as one
// transaction so no expense ever points at a missing category.
func (r *CategoriesRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	// lock the target row so a concurrent delete cannot race us
	var isSystem bool

	err = r.observe("categories.delete.lock", func() error {
		return tx.QueryRow(ctx,
			`SELECT is_system FROM categories WHERE id = $1 FOR UPDATE`, id,
		).Scan(&isSystem)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.ErrNotFound
		}

		return err
	}

	if isSystem {
		return category.ErrSystemCategory
	}

	var systemID string

	err = r.observe("categories.delete.system_lookup", func() error {
		return tx.QueryRow(ctx,
			`SELECT id FROM categories WHERE is_system LIMIT 1`,
		).Scan(&systemID)
	})

	if err != nil {
		return err
	}

	err = r.observe("categories.delete.reassign", func() error {
		_, e := tx.Exec(ctx,
			`UPDATE expenses SET category_id = $1, updated_at = NOW() WHERE category_id = $2`,
			systemID, id,
		)
		return e
	})

	if err != nil {
		return err
	}

	err = r.observe("categories.delete.remove", func() error {
		_, e := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
