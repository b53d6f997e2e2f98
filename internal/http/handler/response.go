package handler

import (
	"errors"
	"time"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type DocumentResponse struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	RoleFolder  string        `json:"role_folder"`
	ProjectName string        `json:"project_name"`
	Type        document.Type `json:"document_type"`
	StorageKey  string        `json:"storage_key"`
	Filename    string        `json:"filename"`
	SizeBytes   int64         `json:"size_bytes"`
	ContentType string        `json:"content_type"`
	SourceID    *uuid.UUID    `json:"source_id,omitempty"`
	UploadedAt  time.Time     `json:"uploaded_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type DownloadURLResponse struct {
	URL        string    `json:"url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type TypeStatsResponse struct {
	Type       document.Type `json:"document_type"`
	Count      int64         `json:"count"`
	TotalBytes int64         `json:"total_bytes"`
}

type StatsResponse struct {
	TotalDocuments int64               `json:"total_documents"`
	TotalBytes     int64               `json:"total_bytes"`
	ByType         []TypeStatsResponse `json:"by_type"`
	RecentUploads  []DocumentResponse  `json:"recent_uploads"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      user.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuditEventResponse struct {
	ID           uuid.UUID          `json:"id"`
	EventType    string             `json:"event_type"`
	ActorType    audit.ActorType    `json:"actor_type"`
	ActorID      *int64             `json:"actor_id,omitempty"`
	ResourceType audit.ResourceType `json:"resource_type"`
	ResourceID   *uuid.UUID         `json:"resource_id,omitempty"`
	StorageKey   string             `json:"storage_key,omitempty"`
	Action       audit.Action       `json:"action"`
	Status       audit.Status       `json:"status"`
	RequestID    string             `json:"request_id,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

func toDocumentResponse(d *document.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		RoleFolder:  d.RoleFolder,
		ProjectName: d.ProjectName,
		Type:        d.Type,
		StorageKey:  d.StorageKey,
		Filename:    d.Filename,
		SizeBytes:   d.SizeBytes,
		ContentType: d.ContentType,
		SourceID:    d.SourceID,
		UploadedAt:  d.UploadedAt,
	}
}

func toDocumentResponses(docs []*document.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	return out
}

func toStatsResponse(s *document.Stats) StatsResponse {
	resp := StatsResponse{
		TotalDocuments: s.TotalDocuments,
		TotalBytes:     s.TotalBytes,
		ByType:         make([]TypeStatsResponse, 0, len(s.ByType)),
		RecentUploads:  toDocumentResponses(s.Recent),
	}
	for _, ts := range s.ByType {
		resp.ByType = append(resp.ByType, TypeStatsResponse{Type: ts.Type, Count: ts.Count, TotalBytes: ts.TotalBytes})
	}
	return resp
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toAuditEventResponse(e *audit.Event) AuditEventResponse {
	return AuditEventResponse{
		ID:           e.ID,
		EventType:    e.EventType,
		ActorType:    e.ActorType,
		ActorID:      e.ActorID,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		StorageKey:   e.StorageKey,
		Action:       e.Action,
		Status:       e.Status,
		RequestID:    e.RequestID,
		ErrorMessage: e.ErrorMessage,
		CreatedAt:    e.CreatedAt,
	}
}

// outcome classifies err for the audit trail.
func outcome(err error) audit.Status {
	switch {
	case err == nil:
		return audit.StatusSuccess
	case errors.Is(err, apperrors.ErrPermission):
		return audit.StatusDenied
	default:
		return audit.StatusFailure
	}
}

func record(rec AuditRecorder, c echo.Context, target audit.Target, action audit.Action, err error, metadata map[string]any) {
	if err != nil {
		rec.RecordError(c, target, action, outcome(err), err)
		return
	}
	rec.Record(c, target, action, audit.StatusSuccess, metadata)
}
