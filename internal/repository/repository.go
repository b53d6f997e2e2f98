package repository

import (
	"context"

	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"

	"github.com/google/uuid"
)

// UserRepository reads the accounts mirrored from the auth subsystem.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	Upsert(ctx context.Context, u *user.User) error
}

// DocumentRepository defines document registry operations
type DocumentRepository interface {
	Create(ctx context.Context, input document.CreateInput) (*document.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error)
	GetByKey(ctx context.Context, key string) (*document.Document, error)
	ListByOwner(ctx context.Context, ownerID int64, filter document.ListFilter) ([]*document.Document, error)
	ListAll(ctx context.Context, filter document.ListFilter) ([]*document.Document, error)
	StatsByOwner(ctx context.Context, ownerID int64) (*document.Stats, error)
	StatsAll(ctx context.Context) (*document.Stats, error)
}
