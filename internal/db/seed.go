package db

import (
	"context"
	"errors"
	"time"

	"github.com/fincrest/expensehub/internal/config"
	"github.com/fincrest/expensehub/internal/domain/category"
	"github.com/fincrest/expensehub/internal/domain/user"
	"github.com/fincrest/expensehub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSystemCategory guarantees the single protected "Uncategorized" row
// exists. Safe to call on every boot.
func EnsureSystemCategory(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO categories (id, name, is_system)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT DO NOTHING`,
		uuid.NewString(), category.SystemCategoryName,
	)

	return err
}

// SeedDefaultCategories inserts the starter set of non-system categories.
// Existing names are left alone.
func SeedDefaultCategories(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range []string{"Travel", "Meals", "Software"} {
		_, err := pool.Exec(ctx,
			`INSERT INTO categories (id, name, is_system)
			 VALUES ($1, $2, FALSE)
			 ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), name,
		)

		if err != nil {
			return err
		}
	}

	return nil
}

// EnsureBootstrapManager creates the configured manager account if it does
// not exist yet, so a fresh deployment always has someone who can review.
func EnsureBootstrapManager(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.BootstrapEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.BootstrapPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        cfg.BootstrapEmail,
		PasswordHash: hash,
		Name:         cfg.BootstrapName,
		Role:         user.RoleManager,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
