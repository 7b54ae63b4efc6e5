package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/support-hub/helpdesk-core/internal/domain"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// OperatorRepository is the directory of helpdesk operators.
type OperatorRepository interface {
	Create(ctx context.Context, operator *domain.Operator) error
	GetByHandle(ctx context.Context, handle string) (*domain.Operator, error)
	GetByID(ctx context.Context, id string) (*domain.Operator, error)
	List(ctx context.Context) ([]domain.Operator, error)
}

type operatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository builds the pgx-backed operator directory.
func NewOperatorRepository(pool *pgxpool.Pool) OperatorRepository {
	return &operatorRepository{pool: pool}
}

func (r *operatorRepository) Create(ctx context.Context, operator *domain.Operator) error {
	const query = `
        INSERT INTO operators (handle, display_name, password_hash, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		operator.Handle,
		operator.DisplayName,
		operator.PasswordHash,
		operator.IsActive,
	).Scan(&operator.ID, &operator.CreatedAt, &operator.UpdatedAt)
}

func (r *operatorRepository) GetByHandle(ctx context.Context, handle string) (*domain.Operator, error) {
	const query = `
        SELECT id, handle, display_name, password_hash, is_active, created_at, updated_at
        FROM operators WHERE handle=$1`
	return r.fetchSingle(ctx, query, handle)
}

func (r *operatorRepository) GetByID(ctx context.Context, id string) (*domain.Operator, error) {
	const query = `
        SELECT id, handle, display_name, password_hash, is_active, created_at, updated_at
        FROM operators WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *operatorRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Operator, error) {
	var operator domain.Operator
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&operator.ID,
		&operator.Handle,
		&operator.DisplayName,
		&operator.PasswordHash,
		&operator.IsActive,
		&operator.CreatedAt,
		&operator.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("operator", nil)
	}
	if err != nil {
		return nil, err
	}
	return &operator, nil
}

func (r *operatorRepository) List(ctx context.Context) ([]domain.Operator, error) {
	const query = `
        SELECT id, handle, display_name, password_hash, is_active, created_at, updated_at
        FROM operators ORDER BY handle ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Operator
	for rows.Next() {
		var operator domain.Operator
		if err := rows.Scan(
			&operator.ID,
			&operator.Handle,
			&operator.DisplayName,
			&operator.PasswordHash,
			&operator.IsActive,
			&operator.CreatedAt,
			&operator.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, operator)
	}
	return result, rows.Err()
}
