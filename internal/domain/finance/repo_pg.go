package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialops/trialops/internal/platform/db"
)

// =========== Expense Repository ===========

type expenseRepoPG struct{ pool *pgxpool.Pool }

func NewExpenseRepoPG(pool *pgxpool.Pool) ExpenseRepository { return &expenseRepoPG{pool: pool} }

func (r *expenseRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const expenseCols = `id, category, description, amount, paid_by, settled, screening_id, spent_on, created_at, updated_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Category, &e.Description, &e.Amount, &e.PaidBy, &e.Settled,
		&e.ScreeningID, &e.SpentOn, &e.CreatedAt, &e.UpdatedAt)
	return &e, err
}

func (r *expenseRepoPG) Create(ctx context.Context, e *Expense) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO expenses (id, category, description, amount, paid_by, settled, screening_id, spent_on)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.Category, e.Description, e.Amount, e.PaidBy, e.Settled, e.ScreeningID, e.SpentOn)
	return err
}

func (r *expenseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return scanExpense(r.conn(ctx).QueryRow(ctx, `SELECT `+expenseCols+` FROM expenses WHERE id = $1`, id))
}

func (r *expenseRepoPG) SetSettled(ctx context.Context, id uuid.UUID, settled bool) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE expenses SET settled=$2, updated_at=NOW() WHERE id = $1`, id, settled)
	return err
}

func (r *expenseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return err
}

func (r *expenseRepoPG) List(ctx context.Context, limit, offset int) ([]*Expense, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+expenseCols+` FROM expenses ORDER BY spent_on DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectExpenses(rows)
	return items, total, err
}

func (r *expenseRepoPG) ListAll(ctx context.Context) ([]*Expense, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+expenseCols+` FROM expenses`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExpenses(rows)
}

func collectExpenses(rows pgx.Rows) ([]*Expense, error) {
	var items []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// =========== Fund Repository ===========

type fundRepoPG struct{ pool *pgxpool.Pool }

func NewFundRepoPG(pool *pgxpool.Pool) FundRepository { return &fundRepoPG{pool: pool} }

func (r *fundRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const fundCols = `id, category, amount, note, received_on, created_at`

func scanFund(row pgx.Row) (*Fund, error) {
	var f Fund
	err := row.Scan(&f.ID, &f.Category, &f.Amount, &f.Note, &f.ReceivedOn, &f.CreatedAt)
	return &f, err
}

func (r *fundRepoPG) Create(ctx context.Context, f *Fund) error {
	f.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO funds (id, category, amount, note, received_on)
		VALUES ($1,$2,$3,$4,$5)`,
		f.ID, f.Category, f.Amount, f.Note, f.ReceivedOn)
	return err
}

func (r *fundRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM funds WHERE id = $1`, id)
	return err
}

func (r *fundRepoPG) List(ctx context.Context, limit, offset int) ([]*Fund, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM funds`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+fundCols+` FROM funds ORDER BY received_on DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectFunds(rows)
	return items, total, err
}

func (r *fundRepoPG) ListAll(ctx context.Context) ([]*Fund, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+fundCols+` FROM funds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFunds(rows)
}

func collectFunds(rows pgx.Rows) ([]*Fund, error) {
	var items []*Fund
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
