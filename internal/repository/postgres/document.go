package postgres

import (
	"context"
	"fmt"
	"time"

	"edrs-docstore/internal/domain/document"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, owner_id, role_folder, project_name, document_type, storage_key,
		       filename, size_bytes, content_type, source_id, uploaded_at`

type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, input document.CreateInput) (*document.Document, error) {
	query := `
		INSERT INTO documents (id, owner_id, role_folder, project_name, document_type, storage_key,
		                       filename, size_bytes, content_type, source_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + documentColumns

	uploadedAt := input.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now()
	}

	d, err := scanDocument(r.db.Pool.QueryRow(ctx, query,
		uuid.New(),
		input.OwnerID,
		input.RoleFolder,
		input.ProjectName,
		input.Type.String(),
		input.StorageKey,
		input.Filename,
		input.SizeBytes,
		input.ContentType,
		input.SourceID,
		uploadedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(errDocumentExists)
		}
		return nil, errFailedCreateDocument(err)
	}

	return d, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	d, err := scanDocument(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errDocumentNotFound)
		}
		return nil, errFailedGetDocument(err)
	}
	return d, nil
}

func (r *DocumentRepository) GetByKey(ctx context.Context, key string) (*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE storage_key = $1`

	d, err := scanDocument(r.db.Pool.QueryRow(ctx, query, key))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errDocumentNotFound)
		}
		return nil, errFailedGetDocument(err)
	}
	return d, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID int64, filter document.ListFilter) ([]*document.Document, error) {
	filter.OwnerID = &ownerID
	return r.list(ctx, filter)
}

// ListAll is the administrator view; filter.OwnerID narrows it to one user.
func (r *DocumentRepository) ListAll(ctx context.Context, filter document.ListFilter) ([]*document.Document, error) {
	return r.list(ctx, filter)
}

func (r *DocumentRepository) list(ctx context.Context, filter document.ListFilter) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := []any{}
	argCount := 1

	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND owner_id = $%d", argCount)
		args = append(args, *filter.OwnerID)
		argCount++
	}

	if filter.Type.Valid() {
		query += fmt.Sprintf(" AND document_type = $%d", argCount)
		args = append(args, filter.Type.String())
		argCount++
	}

	if filter.Project != "" {
		query += fmt.Sprintf(" AND project_name = $%d", argCount)
		args = append(args, filter.Project)
		argCount++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(` AND filename ILIKE $%d ESCAPE '\'`, argCount)
		args = append(args, "%"+escapeLikePattern(filter.Search)+"%")
		argCount++
	}

	query += " ORDER BY uploaded_at DESC, id"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)
	argCount++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errFailedListDocuments(err)
	}
	defer rows.Close()

	docs := []*document.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errFailedScanDocument(err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, errIterateDocuments(err)
	}

	return docs, nil
}

func (r *DocumentRepository) StatsByOwner(ctx context.Context, ownerID int64) (*document.Stats, error) {
	return r.stats(ctx, &ownerID)
}

func (r *DocumentRepository) StatsAll(ctx context.Context) (*document.Stats, error) {
	return r.stats(ctx, nil)
}

func (r *DocumentRepository) stats(ctx context.Context, ownerID *int64) (*document.Stats, error) {
	query := `
		SELECT document_type, COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM documents
		WHERE ($1::BIGINT IS NULL OR owner_id = $1)
		GROUP BY document_type
		ORDER BY document_type
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errFailedDocumentStats(err)
	}
	defer rows.Close()

	stats := &document.Stats{ByType: []document.TypeStats{}}
	for rows.Next() {
		var typeName string
		var ts document.TypeStats
		if err := rows.Scan(&typeName, &ts.Count, &ts.TotalBytes); err != nil {
			return nil, errFailedDocumentStats(err)
		}
		ts.Type, _ = document.ParseType(typeName)
		stats.TotalDocuments += ts.Count
		stats.TotalBytes += ts.TotalBytes
		stats.ByType = append(stats.ByType, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, errFailedDocumentStats(err)
	}

	recent, err := r.recent(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats.Recent = recent

	return stats, nil
}

func (r *DocumentRepository) recent(ctx context.Context, ownerID *int64) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE ($1::BIGINT IS NULL OR owner_id = $1)
		  AND uploaded_at >= $2
		ORDER BY uploaded_at DESC
		LIMIT $3`

	since := time.Now().UTC().AddDate(0, 0, -recentUploadsDays)
	rows, err := r.db.Pool.Query(ctx, query, ownerID, since, recentUploadsLimit)
	if err != nil {
		return nil, errFailedDocumentStats(err)
	}
	defer rows.Close()

	docs := []*document.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, errFailedScanDocument(err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errIterateDocuments(err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	d := &document.Document{}
	var typeName string
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.RoleFolder,
		&d.ProjectName,
		&typeName,
		&d.StorageKey,
		&d.Filename,
		&d.SizeBytes,
		&d.ContentType,
		&d.SourceID,
		&d.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Type, _ = document.ParseType(typeName)
	return d, nil
}
