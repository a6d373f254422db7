package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"finance-tracker/internal/domain"
)

type CategoryRepository interface {
	Create(ctx context.Context, category domain.Category) error
	// CreateMany inserta ignorando las categorias que ya existen.
	CreateMany(ctx context.Context, categories []domain.Category) error
	ListByUser(ctx context.Context, userID string) ([]domain.Category, error)
	Delete(ctx context.Context, userID, name string) error
}

type PgCategoryRepository struct {
	pool *pgxpool.Pool
}

func NewPgCategoryRepository(pool *pgxpool.Pool) *PgCategoryRepository {
	return &PgCategoryRepository{pool: pool}
}

func (r *PgCategoryRepository) Create(ctx context.Context, c domain.Category) error {
	const query = `INSERT INTO categories (user_id, name, created_at) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, query, c.UserID, c.Name, c.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("categories %q: %w", c.Name, ErrDuplicate)
	}
	return err
}

func (r *PgCategoryRepository) CreateMany(ctx context.Context, categories []domain.Category) error {
	const query = `
		INSERT INTO categories (user_id, name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, name) DO NOTHING
	`
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range categories {
		if _, err := tx.Exec(ctx, query, c.UserID, c.Name, c.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PgCategoryRepository) ListByUser(ctx context.Context, userID string) ([]domain.Category, error) {
	const query = `SELECT user_id, name, created_at FROM categories WHERE user_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.UserID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PgCategoryRepository) Delete(ctx context.Context, userID, name string) error {
	const query = `DELETE FROM categories WHERE user_id = $1 AND name = $2`
	return execOne(ctx, r.pool, query, userID, name)
}
