package handler

import (
	"context"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/documents"
	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/gateway"
	"edrs-docstore/internal/storage/s3"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Consumer-side interfaces defined by handlers

type DocumentService interface {
	Upload(ctx context.Context, p user.Principal, in documents.UploadInput) (*document.Document, error)
	AttachAnalysis(ctx context.Context, p user.Principal, in documents.AnalysisInput) (*document.Document, error)
	Get(ctx context.Context, p user.Principal, id uuid.UUID) (*document.Document, error)
	List(ctx context.Context, p user.Principal, filter document.ListFilter) ([]*document.Document, error)
	SignKey(ctx context.Context, p user.Principal, key string) (*gateway.SignedURL, error)
	SignDocument(ctx context.Context, p user.Principal, id uuid.UUID) (*gateway.SignedURL, *document.Document, error)
}

type StorageService interface {
	Browse(ctx context.Context, p user.Principal, in documents.BrowseInput) (*s3.Listing, error)
	Stats(ctx context.Context, p user.Principal, ownerID *int64) (*document.Stats, error)
}

type AuditRecorder interface {
	Record(c echo.Context, target audit.Target, action audit.Action, status audit.Status, metadata map[string]any)
	RecordError(c echo.Context, target audit.Target, action audit.Action, status audit.Status, err error)
}

type AuditQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]*audit.Event, error)
}

type UserProvisioner interface {
	Provision(ctx context.Context, u *user.User) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
