package handler

import (
	"net/http"
	"strconv"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/labstack/echo/v4"
)

// AdminHandler serves administrator-only routes: mirroring accounts from the auth
// subsystem and reading the audit trail.
type AdminHandler struct {
	users  UserProvisioner
	events AuditQuerier
}

func NewAdminHandler(users UserProvisioner, events AuditQuerier) *AdminHandler {
	return &AdminHandler{users: users, events: events}
}

func (h *AdminHandler) ProvisionUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param(paramID), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.Validation(msgInvalidUserID)
	}

	var req ProvisionUserRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return err
	}
	role, ok := user.ParseRole(req.Role)
	if !ok {
		return apperrors.Validation(msgUnknownRole)
	}

	u := &user.User{
		ID:       id,
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := h.users.Provision(c.Request().Context(), u); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *AdminHandler) ListAuditEvents(c echo.Context) error {
	var q AuditQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	filter := audit.QueryFilter{
		ActorID:    optionalID(q.ActorID),
		StorageKey: q.StorageKey,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.Action != "" {
		action := audit.Action(q.Action)
		filter.Action = &action
	}
	if q.Status != "" {
		status := audit.Status(q.Status)
		filter.Status = &status
	}

	events, err := h.events.Query(c.Request().Context(), filter)
	if err != nil {
		return apperrors.InternalServer("failed to query audit events", err)
	}

	out := make([]AuditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toAuditEventResponse(e))
	}
	return c.JSON(http.StatusOK, out)
}
