package postgres

import (
	"context"
	"fmt"

	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID loads a user. Accounts with a role outside the closed set are reported as a
// Configuration error rather than silently downgraded.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u := &user.User{}
	var role string
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errUserNotFound)
		}
		return nil, errFailedGetUser(err)
	}

	parsed, ok := user.ParseRole(role)
	if !ok {
		return nil, apperrors.Configuration(fmt.Sprintf("%s: %q", errUserRoleInvalid, role))
	}
	u.Role = parsed

	return u, nil
}

// Upsert mirrors an account from the auth subsystem. Role changes land here only through
// administrative provisioning.
func (r *UserRepository) Upsert(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, username, email, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
		    email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    is_active = EXCLUDED.is_active,
		    updated_at = now()
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query, u.ID, u.Username, u.Email, u.Role.String(), u.IsActive).Scan(
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("username already taken")
		}
		return errFailedUpsertUser(err)
	}

	return nil
}
