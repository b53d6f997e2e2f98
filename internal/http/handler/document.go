package handler

import (
	"errors"
	"net/http"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/auth"
	"edrs-docstore/internal/documents"
	"edrs-docstore/internal/domain/document"
	apperrors "edrs-docstore/pkg/errors"
	"edrs-docstore/pkg/validator"

	"github.com/labstack/echo/v4"
)

type DocumentHandler struct {
	service     DocumentService
	auditLogger AuditRecorder
	pageSize    int
}

func NewDocumentHandler(service DocumentService, auditLogger AuditRecorder, pageSize int) *DocumentHandler {
	return &DocumentHandler{
		service:     service,
		auditLogger: auditLogger,
		pageSize:    pageSize,
	}
}

// Upload accepts a multipart form with the file and its project. The type is inferred
// from the extension unless document_type is given.
func (h *DocumentHandler) Upload(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(formFile)
	if err != nil {
		return apperrors.Validation(msgFileRequired)
	}

	req := UploadRequest{
		ProjectName:  c.FormValue(formProject),
		DocumentType: c.FormValue(formType),
		ContentType:  fh.Header.Get(headerContent),
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := parseDocumentType(req.DocumentType)
	if err != nil {
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.Validation(msgFileOpenFailed)
	}
	defer f.Close()

	d, err := h.service.Upload(c.Request().Context(), p, documents.UploadInput{
		ProjectName: req.ProjectName,
		Filename:    fh.Filename,
		Type:        t,
		ContentType: validator.NormalizeContentType(req.ContentType),
		Size:        fh.Size,
		Body:        f,
	})
	target := audit.Target{Type: audit.ResourceTypeDocument}
	if d != nil {
		target.ResourceID = &d.ID
		target.StorageKey = d.StorageKey
	}
	record(h.auditLogger, c, target, audit.ActionUpload, err, map[string]any{
		"filename": fh.Filename,
		"size":     fh.Size,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toDocumentResponse(d))
}

// AttachAnalysis stores an analysis result next to the document named in the path.
func (h *DocumentHandler) AttachAnalysis(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}
	sourceID, err := parseDocumentID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile(formFile)
	if err != nil {
		return apperrors.Validation(msgFileRequired)
	}
	f, err := fh.Open()
	if err != nil {
		return apperrors.Validation(msgFileOpenFailed)
	}
	defer f.Close()

	d, err := h.service.AttachAnalysis(c.Request().Context(), p, documents.AnalysisInput{
		SourceID: sourceID,
		Filename: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	})
	target := audit.Target{Type: audit.ResourceTypeDocument, ResourceID: &sourceID}
	if d != nil {
		target.ResourceID = &d.ID
		target.StorageKey = d.StorageKey
	}
	record(h.auditLogger, c, target, audit.ActionUpload, err, map[string]any{
		"source_id": sourceID.String(),
		"filename":  fh.Filename,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toDocumentResponse(d))
}

func (h *DocumentHandler) List(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var q ListDocumentsQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	t, err := parseDocumentType(q.DocumentType)
	if err != nil {
		return err
	}
	if q.Limit == 0 {
		q.Limit = h.pageSize
	}

	docs, err := h.service.List(c.Request().Context(), p, document.ListFilter{
		OwnerID: optionalID(q.OwnerID),
		Type:    t,
		Project: q.Project,
		Search:  q.Search,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		h.auditLogger.RecordError(c, audit.Target{Type: audit.ResourceTypeDocument}, audit.ActionList, outcome(err), err)
		return err
	}

	return c.JSON(http.StatusOK, DocumentListResponse{
		Documents: toDocumentResponses(docs),
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
}

func (h *DocumentHandler) Get(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseDocumentID(c)
	if err != nil {
		return err
	}

	d, err := h.service.Get(c.Request().Context(), p, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrPermission) {
			h.auditLogger.RecordError(c, audit.Target{Type: audit.ResourceTypeDocument, ResourceID: &id}, audit.ActionRead, audit.StatusDenied, err)
		}
		return err
	}

	return c.JSON(http.StatusOK, toDocumentResponse(d))
}

// DownloadURL signs the key of a registered document.
func (h *DocumentHandler) DownloadURL(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseDocumentID(c)
	if err != nil {
		return err
	}

	signed, d, err := h.service.SignDocument(c.Request().Context(), p, id)
	target := audit.Target{Type: audit.ResourceTypeDocument, ResourceID: &id}
	if d != nil {
		target.StorageKey = d.StorageKey
	}
	record(h.auditLogger, c, target, audit.ActionSign, err, nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, DownloadURLResponse{URL: signed.URL, StorageKey: signed.Key, ExpiresAt: signed.ExpiresAt})
}

// DownloadURLByKey signs a raw storage key supplied by the caller.
func (h *DocumentHandler) DownloadURLByKey(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var req DownloadURLRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}

	signed, err := h.service.SignKey(c.Request().Context(), p, req.StorageKey)
	record(h.auditLogger, c, audit.Target{Type: audit.ResourceTypeDocument, StorageKey: req.StorageKey}, audit.ActionSign, err, nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, DownloadURLResponse{URL: signed.URL, StorageKey: signed.Key, ExpiresAt: signed.ExpiresAt})
}
