package documents

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/gateway"
	"edrs-docstore/internal/pathing"
	"edrs-docstore/internal/rbac"
	"edrs-docstore/internal/rbac/presets"
	"edrs-docstore/internal/repository"
	"edrs-docstore/internal/storage/s3"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/google/uuid"
)

const (
	DefaultMaxUploadSize  = int64(50 << 20)
	DefaultPutTimeout     = 30 * time.Second
	DefaultBrowsePageSize = 100
	maxBrowsePageSize     = 1000
	analysisExtension     = "json"
	analysisContentType   = "application/json"
)

// ObjectStore is the object storage the service writes to and lists.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, params s3.ObjectParams) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix, continuationToken string, pageSize int) (*s3.Listing, error)
}

// Capabilities decides whether a principal may perform an action on a resource.
type Capabilities interface {
	Check(p user.Principal, resource rbac.Resource, action rbac.Action) error
}

// Service orchestrates uploads, lookups, browsing and signing on top of the resolver and
// the access gateway.
type Service struct {
	resolver     *pathing.Resolver
	gateway      *gateway.Gateway
	store        ObjectStore
	docs         repository.DocumentRepository
	capabilities Capabilities

	maxUploadSize int64
	putTimeout    time.Duration
	now           func() time.Time
}

type Option func(*Service)

func WithMaxUploadSize(n int64) Option {
	return func(s *Service) { s.maxUploadSize = n }
}

func WithPutTimeout(d time.Duration) Option {
	return func(s *Service) { s.putTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(resolver *pathing.Resolver, gw *gateway.Gateway, store ObjectStore, docs repository.DocumentRepository, capabilities Capabilities, opts ...Option) *Service {
	s := &Service{
		resolver:      resolver,
		gateway:       gw,
		store:         store,
		docs:          docs,
		capabilities:  capabilities,
		maxUploadSize: DefaultMaxUploadSize,
		putTimeout:    DefaultPutTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadInput is one file to store. Type may be left unknown to infer it from the
// extension; when set it must match the extension.
type UploadInput struct {
	ProjectName string
	Filename    string
	Type        document.Type
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// Upload stores a file under the caller's role folder and records it in the registry.
func (s *Service) Upload(ctx context.Context, p user.Principal, in UploadInput) (*document.Document, error) {
	if err := s.checkSize(in.Size); err != nil {
		return nil, err
	}
	if !document.AllowedExtension(in.Filename) {
		return nil, apperrors.Validation(fmt.Sprintf(errExtensionNotAllowedFmt, document.Extension(in.Filename)))
	}

	if in.Type == document.TypeAnalysisResult {
		return nil, apperrors.Validation(errAnalysisViaSource)
	}
	t, ok := document.TypeFromFilename(in.Filename)
	if !ok {
		return nil, apperrors.Validation(errTypeInvalid)
	}
	// The capability check keys on the type, so a declared type must agree with the file.
	if in.Type != document.TypeUnknown && in.Type != t {
		return nil, apperrors.Validation(fmt.Sprintf(errTypeMismatchFmt, in.Type, document.Extension(in.Filename), t))
	}

	if err := s.capabilities.Check(p, presets.ResourceFor(t), presets.ActionWrite); err != nil {
		return nil, err
	}

	uploadedAt := s.now().UTC()
	key, err := s.resolver.Resolve(pathing.KeyInput{
		Role:        p.Role,
		UserID:      p.ID,
		ProjectName: in.ProjectName,
		Type:        t,
		Timestamp:   uploadedAt,
		Filename:    in.Filename,
	})
	if err != nil {
		return nil, err
	}
	parts, err := s.resolver.ParseKey(key.String())
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, storeRequest{
		key:         key.String(),
		parts:       parts,
		ownerID:     p.ID,
		contentType: in.ContentType,
		size:        in.Size,
		body:        in.Body,
		uploadedAt:  uploadedAt,
	})
}

// AnalysisInput is an analysis result produced for an existing document.
type AnalysisInput struct {
	SourceID uuid.UUID
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

// AttachAnalysis stores an analysis result next to its source document. The caller must
// be able to read the source and hold write on analysis results.
func (s *Service) AttachAnalysis(ctx context.Context, p user.Principal, in AnalysisInput) (*document.Document, error) {
	if err := s.checkSize(in.Size); err != nil {
		return nil, err
	}
	if document.Extension(in.Filename) != analysisExtension {
		return nil, apperrors.Validation(errAnalysisExtension)
	}

	source, err := s.docs.GetByID(ctx, in.SourceID)
	if err != nil {
		return nil, err
	}
	if source.Type == document.TypeAnalysisResult {
		return nil, apperrors.Validation(errAnalysisOfAnalysis)
	}
	if err := s.gateway.Authorize(p, source.StorageKey); err != nil {
		return nil, err
	}
	if err := s.capabilities.Check(p, presets.ResourceAnalysis, presets.ActionWrite); err != nil {
		return nil, err
	}

	key, err := s.resolver.DeriveAnalysisKey(source.StorageKey, in.Filename)
	if err != nil {
		return nil, err
	}
	parts, err := s.resolver.ParseKey(key.String())
	if err != nil {
		return nil, err
	}

	sourceID := source.ID
	return s.persist(ctx, storeRequest{
		key:         key.String(),
		parts:       parts,
		ownerID:     source.OwnerID,
		contentType: analysisContentType,
		size:        in.Size,
		body:        in.Body,
		sourceID:    &sourceID,
		uploadedAt:  s.now().UTC(),
	})
}

// Get returns a registry record the caller may read.
func (s *Service) Get(ctx context.Context, p user.Principal, id uuid.UUID) (*document.Document, error) {
	d, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.Authorize(p, d.StorageKey); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the caller's documents. Administrators see everyone's, optionally narrowed
// by filter.OwnerID; anyone else asking for another owner is refused.
func (s *Service) List(ctx context.Context, p user.Principal, filter document.ListFilter) ([]*document.Document, error) {
	if filter.Project != "" {
		project, err := pathing.SanitizeProjectName(filter.Project)
		if err != nil {
			return nil, err
		}
		filter.Project = project
	}
	if p.Role.IsAdministrator() {
		return s.docs.ListAll(ctx, filter)
	}
	if filter.OwnerID != nil && *filter.OwnerID != p.ID {
		return nil, apperrors.Permission(errOtherOwner)
	}
	return s.docs.ListByOwner(ctx, p.ID, filter)
}

// Stats summarizes the caller's documents, or any owner's for administrators.
func (s *Service) Stats(ctx context.Context, p user.Principal, ownerID *int64) (*document.Stats, error) {
	if p.Role.IsAdministrator() {
		if ownerID != nil {
			return s.docs.StatsByOwner(ctx, *ownerID)
		}
		return s.docs.StatsAll(ctx)
	}
	if ownerID != nil && *ownerID != p.ID {
		return nil, apperrors.Permission(errOtherOwner)
	}
	return s.docs.StatsByOwner(ctx, p.ID)
}

// SignKey issues a download URL for a raw storage key.
func (s *Service) SignKey(ctx context.Context, p user.Principal, key string) (*gateway.SignedURL, error) {
	return s.gateway.AuthorizeAndSign(ctx, p, key)
}

// SignDocument issues a download URL for a registered document.
func (s *Service) SignDocument(ctx context.Context, p user.Principal, id uuid.UUID) (*gateway.SignedURL, *document.Document, error) {
	d, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	signed, err := s.gateway.AuthorizeAndSign(ctx, p, d.StorageKey)
	if err != nil {
		return nil, d, err
	}
	return signed, d, nil
}

// BrowseInput selects one page of a folder listing.
type BrowseInput struct {
	Prefix   string
	Token    string
	PageSize int
}

// Browse lists one level of the bucket inside the caller's area. Administrators may list
// from the root; everyone else is confined to their own user folder.
func (s *Service) Browse(ctx context.Context, p user.Principal, in BrowseInput) (*s3.Listing, error) {
	if err := s.capabilities.Check(p, presets.ResourceStorage, presets.ActionBrowse); err != nil {
		return nil, err
	}

	scope, err := s.scope(p)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimPrefix(in.Prefix, "/")
	if prefix == "" {
		prefix = scope
	}
	if err := pathing.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(prefix, scope) {
		return nil, apperrors.Permission(errPrefixOutsideScope)
	}

	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = DefaultBrowsePageSize
	}
	if pageSize > maxBrowsePageSize {
		pageSize = maxBrowsePageSize
	}

	return s.store.List(ctx, prefix, in.Token, pageSize)
}

func (s *Service) scope(p user.Principal) (string, error) {
	if p.Role.IsAdministrator() {
		return s.resolver.RootPrefix(), nil
	}
	return s.resolver.UserPrefix(p.Role, p.ID)
}

func (s *Service) checkSize(size int64) error {
	if size <= 0 {
		return apperrors.Validation(errEmptyFile)
	}
	if size > s.maxUploadSize {
		return apperrors.PayloadTooLarge(fmt.Sprintf(errFileTooLargeFmt, s.maxUploadSize>>20))
	}
	return nil
}
