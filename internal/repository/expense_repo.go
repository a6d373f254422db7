package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"finance-tracker/internal/domain"
)

// ExpenseRepository persiste gastos; toda operacion va acotada por user_id.
type ExpenseRepository interface {
	Create(ctx context.Context, expense domain.Expense) error
	ListByUser(ctx context.Context, userID string) ([]domain.Expense, error)
	Delete(ctx context.Context, userID, id string) error
}

type PgExpenseRepository struct {
	pool *pgxpool.Pool
}

func NewPgExpenseRepository(pool *pgxpool.Pool) *PgExpenseRepository {
	return &PgExpenseRepository{pool: pool}
}

func (r *PgExpenseRepository) Create(ctx context.Context, e domain.Expense) error {
	const query = `
		INSERT INTO expenses (id, user_id, amount, currency, category, description, type, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.UserID,
		e.Amount,
		e.Currency,
		e.Category,
		e.Description,
		e.Type,
		e.OccurredAt,
		e.CreatedAt,
	)
	return err
}

func (r *PgExpenseRepository) ListByUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	const query = `
		SELECT id, user_id, amount, currency, category, description, type, occurred_at, created_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Amount,
			&e.Currency,
			&e.Category,
			&e.Description,
			&e.Type,
			&e.OccurredAt,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *PgExpenseRepository) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM expenses WHERE id = $1 AND user_id = $2`
	return execOne(ctx, r.pool, query, id, userID)
}
