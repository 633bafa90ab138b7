package postgres

import (
	"context"

	"github.com/fincrest/expensehub/internal/domain/report"
	"github.com/fincrest/expensehub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReportsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewReportsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ReportsRepo {
	return &ReportsRepo{pool: pool, prom: prom}
}

func (r *ReportsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// ownerID narrows the aggregate to one submitter; nil means everyone.

func (r *ReportsRepo) SummaryByCategory(ctx context.Context, w report.Window, ownerID *string) ([]report.CategoryRow, error) {
	query := `
		SELECT c.name AS category,
		       SUM(e.amount) AS total,
		       COUNT(e.id) AS count
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE e.receipt_date >= $1 AND e.receipt_date <= $2`

	args := []interface{}{w.From, w.To}

	if ownerID != nil {
		query += ` AND e.user_id = $3`
		args = append(args, *ownerID)
	}

	query += ` GROUP BY c.id, c.name ORDER BY total DESC`

	var items []report.CategoryRow

	err := r.observe("reports.by_category", func() error {
		rows, e := r.pool.Query(ctx, query, args...)
		if e != nil {
			return e
		}

		defer rows.Close()

		items = make([]report.CategoryRow, 0, 8)

		for rows.Next() {
			var row report.CategoryRow

			if e := rows.Scan(&row.Category, &row.Total, &row.Count); e != nil {
				return e
			}

			items = append(items, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *ReportsRepo) SummaryByUser(ctx context.Context, w report.Window) ([]report.UserRow, error) {
	query := `
		SELECT u.name AS "user",
		       u.email,
		       SUM(e.amount) AS total,
		       COUNT(e.id) AS count
		FROM expenses e
		JOIN users u ON e.user_id = u.id
		WHERE e.receipt_date >= $1 AND e.receipt_date <= $2
		GROUP BY u.id, u.name, u.email
		ORDER BY total DESC`

	var items []report.UserRow

	err := r.observe("reports.by_user", func() error {
		rows, e := r.pool.Query(ctx, query, w.From, w.To)
		if e != nil {
			return e
		}

		defer rows.Close()

		items = make([]report.UserRow, 0, 8)

		for rows.Next() {
			var row report.UserRow

			if e := rows.Scan(&row.User, &row.Email, &row.Total, &row.Count); e != nil {
				return e
			}

			items = append(items, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *ReportsRepo) SummaryByStatus(ctx context.Context, w report.Window, ownerID *string) ([]report.StatusRow, error) {
	query := `
		SELECT e.status,
		       SUM(e.amount) AS total,
		       COUNT(e.id) AS count
		FROM expenses e
		WHERE e.receipt_date >= $1 AND e.receipt_date <= $2`

	args := []interface{}{w.From, w.To}

	if ownerID != nil {
		query += ` AND e.user_id = $3`
		args = append(args, *ownerID)
	}

	query += ` GROUP BY e.status ORDER BY total DESC`

	var items []report.StatusRow

	err := r.observe("reports.by_status", func() error {
		rows, e := r.pool.Query(ctx, query, args...)
		if e != nil {
			return e
		}

		defer rows.Close()

		items = make([]report.StatusRow, 0, 3)

		for rows.Next() {
			var row report.StatusRow

			if e := rows.Scan(&row.Status, &row.Total, &row.Count); e != nil {
				return e
			}

			items = append(items, row)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return items, nil
}
