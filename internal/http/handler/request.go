package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"edrs-docstore/internal/domain/document"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	contentTypeJSON          = "application/json"
	maxStrictBodyBytes int64 = 1 << 20
)

type DownloadURLRequest struct {
	StorageKey string `json:"storage_key" validate:"required,max=1024"`
}

type UploadRequest struct {
	ProjectName  string `form:"project_name" validate:"required,max=255"`
	DocumentType string `form:"document_type" validate:"omitempty,max=32"`
	// ContentType is the Content-Type header of the file part.
	ContentType string `form:"content_type" validate:"omitempty,contenttype"`
}

type ListDocumentsQuery struct {
	OwnerID      int64  `query:"owner_id" validate:"omitempty,gt=0"`
	DocumentType string `query:"document_type" validate:"omitempty,max=32"`
	Project      string `query:"project" validate:"omitempty,max=255"`
	Search       string `query:"search" validate:"omitempty,max=255"`
	Limit        int    `query:"limit" validate:"omitempty,gte=1,lte=1000"`
	Offset       int    `query:"offset" validate:"omitempty,gte=0"`
}

type BrowseQuery struct {
	Prefix   string `query:"prefix" validate:"omitempty,max=1024"`
	Token    string `query:"continuation_token" validate:"omitempty,max=1024"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=1000"`
}

type StatsQuery struct {
	OwnerID int64 `query:"owner_id" validate:"omitempty,gt=0"`
}

type ProvisionUserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Role     string `json:"role" validate:"required"`
	IsActive *bool  `json:"is_active"`
}

type AuditQuery struct {
	ActorID    int64  `query:"actor_id" validate:"omitempty,gt=0"`
	StorageKey string `query:"storage_key" validate:"omitempty,max=1024"`
	Action     string `query:"action" validate:"omitempty,oneof=upload read list sign browse stats"`
	Status     string `query:"status" validate:"omitempty,oneof=success failure denied"`
	Limit      int    `query:"limit" validate:"omitempty,gte=1,lte=1000"`
	Offset     int    `query:"offset" validate:"omitempty,gte=0"`
}

func bindStrictJSON(c echo.Context, dst interface{}) error {
	if !strings.HasPrefix(strings.ToLower(c.Request().Header.Get(echo.HeaderContentType)), contentTypeJSON) {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, msgContentTypeJSONRequired)
	}

	body := io.LimitReader(c.Request().Body, maxStrictBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return apperrors.Validation(msgInvalidRequestBody)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperrors.Validation(msgInvalidRequestBody)
	}

	return c.Validate(dst)
}

// bindQuery binds and validates query parameters regardless of the request method.
func bindQuery(c echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, dst); err != nil {
		return apperrors.Validation(msgInvalidQuery)
	}
	return c.Validate(dst)
}

func parseDocumentID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(paramID))
	if err != nil {
		return uuid.Nil, apperrors.Validation(msgInvalidDocumentID)
	}
	return id, nil
}

// parseDocumentType treats "" as unset.
func parseDocumentType(s string) (document.Type, error) {
	if s == "" {
		return document.TypeUnknown, nil
	}
	t, ok := document.ParseType(s)
	if !ok {
		return document.TypeUnknown, apperrors.Validation(unknownDocumentTypeMessage())
	}
	return t, nil
}

func unknownDocumentTypeMessage() string {
	names := make([]string, 0, len(document.Types()))
	for _, t := range document.Types() {
		names = append(names, t.String())
	}
	return fmt.Sprintf(msgUnknownDocumentTypeFmt, strings.Join(names, ", "))
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
