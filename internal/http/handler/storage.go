package handler

import (
	"net/http"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/auth"
	"edrs-docstore/internal/documents"

	"github.com/labstack/echo/v4"
)

type StorageHandler struct {
	service     StorageService
	auditLogger AuditRecorder
}

func NewStorageHandler(service StorageService, auditLogger AuditRecorder) *StorageHandler {
	return &StorageHandler{
		service:     service,
		auditLogger: auditLogger,
	}
}

// Browse lists one folder level inside the caller's storage area.
func (h *StorageHandler) Browse(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var q BrowseQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	listing, err := h.service.Browse(c.Request().Context(), p, documents.BrowseInput{
		Prefix:   q.Prefix,
		Token:    q.Token,
		PageSize: q.PageSize,
	})
	if err != nil {
		h.auditLogger.RecordError(c, audit.Target{Type: audit.ResourceTypeStorage, StorageKey: q.Prefix}, audit.ActionBrowse, outcome(err), err)
		return err
	}

	return c.JSON(http.StatusOK, listing)
}

func (h *StorageHandler) Stats(c echo.Context) error {
	p, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var q StatsQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), p, optionalID(q.OwnerID))
	if err != nil {
		h.auditLogger.RecordError(c, audit.Target{Type: audit.ResourceTypeStorage}, audit.ActionStats, outcome(err), err)
		return err
	}

	return c.JSON(http.StatusOK, toStatsResponse(stats))
}
