package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finance-tracker/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
// Las busquedas devuelven pgx.ErrNoRows cuando no hay coincidencia.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	// GetByEmail devuelve el registro vivo (no eliminado) para el email.
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	// GetLatestByEmail prioriza el registro vivo; si no lo hay devuelve el
	// eliminado mas reciente.
	GetLatestByEmail(ctx context.Context, email string) (domain.User, error)
	ListPending(ctx context.Context) ([]domain.User, error)
	// MarkVerified y DeletePending solo afectan registros pendientes.
	MarkVerified(ctx context.Context, id string, at time.Time) error
	DeletePending(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, email, password_hash, verified, role, deleted_at, created_at, updated_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, password_hash, verified, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Verified,
		string(user.Role),
		user.CreatedAt,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("users.email %q: %w", user.Email, ErrDuplicate)
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) GetLatestByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1
		ORDER BY (deleted_at IS NULL) DESC, deleted_at DESC
		LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) ListPending(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE verified = FALSE AND deleted_at IS NULL
		ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PgUserRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users SET verified = TRUE, updated_at = $2
		WHERE id = $1 AND verified = FALSE AND deleted_at IS NULL
	`
	return execOne(ctx, r.pool, query, id, at)
}

func (r *PgUserRepository) DeletePending(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1 AND verified = FALSE AND deleted_at IS NULL`
	return execOne(ctx, r.pool, query, id)
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	const query = `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`
	return execOne(ctx, r.pool, query, id, passwordHash, at)
}

func (r *PgUserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	return execOne(ctx, r.pool, query, id, at)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Verified,
		&role,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	return u, err
}

func execOne(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
