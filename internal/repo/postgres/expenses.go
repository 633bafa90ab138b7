package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fincrest/expensehub/internal/domain/expense"
	"github.com/fincrest/expensehub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExpensesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewExpensesRepo(pool *pgxpool.Pool, prom *observability.Prom) *ExpensesRepo {
	return &ExpensesRepo{pool: pool, prom: prom}
}

func (r *ExpensesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// read-side projection; joins fill the display names
const expenseColumns = `
	e.id, e.user_id, e.category_id, e.amount, e.description, e.receipt_date,
	e.status, e.reviewed_by, e.reviewed_at, e.rejection_reason,
	c.name AS category_name, u.name AS user_name, rv.name AS reviewer_name,
	e.created_at, e.updated_at`

const expenseJoins = `
	FROM expenses e
	LEFT JOIN categories c ON e.category_id = c.id
	LEFT JOIN users u ON e.user_id = u.id
	LEFT JOIN users rv ON e.reviewed_by = rv.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (expense.Expense, error) {
	var (
		e           expense.Expense
		receiptDate time.Time
		status      string
	)

	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.CategoryID,
		&e.Amount,
		&e.Description,
		&receiptDate,
		&status,
		&e.ReviewedBy,
		&e.ReviewedAt,
		&e.RejectionReason,
		&e.CategoryName,
		&e.UserName,
		&e.ReviewerName,
		&e.CreatedAt,
		&e.UpdatedAt,
	)

	if err != nil {
		return expense.Expense{}, err
	}

	e.ReceiptDate = receiptDate.Format(expense.ReceiptDateLayout)
	e.Status = expense.Status(status)

	return e, nil
}

func (r *ExpensesRepo) Create(ctx context.Context, req expense.CreateExpenseRequest) (expense.Expense, error) {
	// dangling category references are the one referential check the
	// engine owns
	var categoryExists bool

	err := r.observe("expenses.create.category_check", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, req.CategoryID,
		).Scan(&categoryExists)
	})

	if err != nil {
		return expense.Expense{}, err
	}

	if !categoryExists {
		return expense.Expense{}, expense.ErrCategoryNotFound
	}

	e := expense.NewFromCreateRequest(req)

	receiptDate, err := time.Parse(expense.ReceiptDateLayout, e.ReceiptDate)
	if err != nil {
		return expense.Expense{}, err
	}

	err = r.observe("expenses.create.insert", func() error {
		_, ie := r.pool.Exec(ctx,
			`INSERT INTO expenses (id, user_id, category_id, amount, description, receipt_date, status, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.ID, e.UserID, e.CategoryID, e.Amount, e.Description, receiptDate, e.Status, e.CreatedAt, e.UpdatedAt,
		)
		return ie
	})

	if err != nil {
		// the category can vanish between check and insert; the FK closes
		// that window
		if IsForeignKeyViolation(err) {
			return expense.Expense{}, expense.ErrCategoryNotFound
		}

		return expense.Expense{}, err
	}

	return r.GetByID(ctx, e.ID)
}

func (r *ExpensesRepo) GetByID(ctx context.Context, id string) (expense.Expense, error) {
	var e expense.Expense

	err := r.observe("expenses.get_by_id", func() error {
		var se error
		e, se = scanExpense(r.pool.QueryRow(ctx,
			`SELECT`+expenseColumns+expenseJoins+` WHERE e.id = $1`, id))
		return se
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}

		return expense.Expense{}, err
	}

	return e, nil
}

func (r *ExpensesRepo) List(ctx context.Context, filter expense.ListFilter) ([]expense.Expense, int, error) {
	filter.Normalize()

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.UserID != nil {
		conds = append(conds, fmt.Sprintf("e.user_id = $%d", argsPosition))
		args = append(args, *filter.UserID)
		argsPosition++
	}

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("e.status = $%d", argsPosition))
		args = append(args, string(*filter.Status))
		argsPosition++
	}

	if filter.CategoryID != nil {
		conds = append(conds, fmt.Sprintf("e.category_id = $%d", argsPosition))
		args = append(args, *filter.CategoryID)
		argsPosition++
	}

	if filter.FromDate != nil {
		conds = append(conds, fmt.Sprintf("e.receipt_date >= $%d", argsPosition))
		args = append(args, *filter.FromDate)
		argsPosition++
	}

	if filter.ToDate != nil {
		conds = append(conds, fmt.Sprintf("e.receipt_date <= $%d", argsPosition))
		args = append(args, *filter.ToDate)
		argsPosition++
	}

	query := `SELECT` + expenseColumns + `, COUNT(*) OVER() AS total` + expenseJoins

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// newest receipts first, latest submission breaking ties
	query += fmt.Sprintf(" ORDER BY e.receipt_date DESC, e.created_at DESC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	output := make([]expense.Expense, 0, filter.Limit)
	total := 0

	err := r.observe("expenses.list", func() error {
		rows, qe := r.pool.Query(ctx, query, args...)
		if qe != nil {
			return qe
		}

		defer rows.Close()

		for rows.Next() {
			var (
				e           expense.Expense
				receiptDate time.Time
				status      string
				t           int
			)

			qe = rows.Scan(
				&e.ID, &e.UserID, &e.CategoryID, &e.Amount, &e.Description, &receiptDate,
				&status, &e.ReviewedBy, &e.ReviewedAt, &e.RejectionReason,
				&e.CategoryName, &e.UserName, &e.ReviewerName,
				&e.CreatedAt, &e.UpdatedAt, &t,
			)

			if qe != nil {
				return qe
			}

			e.ReceiptDate = receiptDate.Format(expense.ReceiptDateLayout)
			e.Status = expense.Status(status)

			total = t
			output = append(output, e)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

// lockRow reads the columns the guard needs while taking a row lock, so
// concurrent state transitions on the same expense serialize.
func (r *ExpensesRepo) lockRow(ctx context.Context, tx pgx.Tx, id string) (expense.Expense, error) {
	var (
		e      expense.Expense
		status string
	)

	err := tx.QueryRow(ctx,
		`SELECT id, user_id, status FROM expenses WHERE id = $1 FOR UPDATE`, id,
	).Scan(&e.ID, &e.UserID, &status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrNotFound
		}

		return expense.Expense{}, err
	}

	e.Status = expense.Status(status)

	return e, nil
}

func (r *ExpensesRepo) Update(ctx context.Context, actor expense.Actor, id string, req expense.UpdateExpenseRequest) (expense.Expense, error) {
	receiptDate, err := time.Parse(expense.ReceiptDateLayout, req.ReceiptDate)
	if err != nil {
		return expense.Expense{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return expense.Expense{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := r.lockRow(ctx, tx, id)
	if err != nil {
		return expense.Expense{}, err
	}

	if err := expense.Authorize(actor, expense.OpModify, &locked); err != nil {
		return expense.Expense{}, err
	}

	var categoryExists bool

	err = r.observe("expenses.update.category_check", func() error {
		return tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, req.CategoryID,
		).Scan(&categoryExists)
	})

	if err != nil {
		return expense.Expense{}, err
	}

	if !categoryExists {
		return expense.Expense{}, expense.ErrCategoryNotFound
	}

	err = r.observe("expenses.update.apply", func() error {
		_, ue := tx.Exec(ctx,
			`UPDATE expenses
			 SET category_id = $2, amount = $3, description = $4, receipt_date = $5, updated_at = NOW()
			 WHERE id = $1`,
			id, req.CategoryID, req.Amount, req.Description, receiptDate,
		)
		return ue
	})

	if err != nil {
		return expense.Expense{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return expense.Expense{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *ExpensesRepo) Delete(ctx context.Context, actor expense.Actor, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := r.lockRow(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := expense.Authorize(actor, expense.OpDelete, &locked); err != nil {
		return err
	}

	err = r.observe("expenses.delete", func() error {
		_, de := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
		return de
	})

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ExpensesRepo) Approve(ctx context.Context, actor expense.Actor, id string) (expense.Expense, error) {
	err := r.review(ctx, actor, id, expense.StatusApproved, nil)
	if err != nil {
		return expense.Expense{}, err
	}

	return r.GetByID(ctx, id)
}

func (r *ExpensesRepo) Reject(ctx context.Context, actor expense.Actor, id string, reason string) (expense.Expense, error) {
	if strings.TrimSpace(reason) == "" {
		return expense.Expense{}, expense.ErrEmptyReason
	}

	err := r.review(ctx, actor, id, expense.StatusRejected, &reason)
	if err != nil {
		return expense.Expense{}, err
	}

	return r.GetByID(ctx, id)
}

// review applies a terminal transition under a row lock. Two concurrent
// reviews of the same expense serialize here: the loser sees a
// non-pending row and fails the guard, never a silent double apply.
func (r *ExpensesRepo) review(ctx context.Context, actor expense.Actor, id string, to expense.Status, reason *string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	locked, err := r.lockRow(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := expense.Authorize(actor, expense.OpReview, &locked); err != nil {
		return err
	}

	err = r.observe("expenses.review."+string(to), func() error {
		_, ue := tx.Exec(ctx,
			`UPDATE expenses
			 SET status = $2, reviewed_by = $3, reviewed_at = NOW(), rejection_reason = $4, updated_at = NOW()
			 WHERE id = $1`,
			id, string(to), actor.UserID, reason,
		)
		return ue
	})

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
