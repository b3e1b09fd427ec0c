package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/finloop/loan-management/internal/domain"
)

type userRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository returns a UserRepository bound to db, which may be a
// *sqlx.DB or a *sqlx.Tx.
func NewUserRepository(db sqlx.ExtContext) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.CreatedAt,
	)

	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_verified, created_at
		FROM users
		WHERE email = $1
	`

	var user domain.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, email); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, is_verified, created_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	if err := sqlx.GetContext(ctx, r.db, &user, query, id); err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_verified = TRUE WHERE id = $1`, id)
	return err
}
