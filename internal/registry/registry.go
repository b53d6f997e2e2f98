package registry

import (
	"context"
	"errors"

	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/infra/cache"
	"edrs-docstore/internal/repository"
	apperrors "edrs-docstore/pkg/errors"
)

const (
	errUserUnknown  = "user is not registered"
	errUserInactive = "user account is inactive"
)

// Registry resolves the authenticated caller's identity and role. Roles always come from
// here, never from the bearer token alone.
type Registry struct {
	users repository.UserRepository
	cache cache.UserCache
}

func New(users repository.UserRepository, c cache.UserCache) *Registry {
	return &Registry{users: users, cache: c}
}

// Lookup returns an active user. Unknown and inactive accounts are Unauthorized.
func (r *Registry) Lookup(ctx context.Context, id int64) (*user.User, error) {
	if id <= 0 {
		return nil, apperrors.Unauthorized(errUserUnknown)
	}

	if r.cache != nil {
		if u, ok := r.cache.Get(ctx, id); ok {
			return checkActive(u)
		}
	}

	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(errUserUnknown)
		}
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(ctx, u)
	}
	return checkActive(u)
}

// Provision writes an account and drops any cached copy so role changes apply at once.
func (r *Registry) Provision(ctx context.Context, u *user.User) error {
	if u == nil || u.ID <= 0 || !u.Role.Valid() {
		return apperrors.Validation("user id and role are required")
	}
	if err := r.users.Upsert(ctx, u); err != nil {
		return err
	}
	if r.cache != nil {
		r.cache.Delete(ctx, u.ID)
	}
	return nil
}

func checkActive(u *user.User) (*user.User, error) {
	if !u.IsActive {
		return nil, apperrors.Unauthorized(errUserInactive)
	}
	return u, nil
}
