package http

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "edrs-docstore/pkg/errors"
	"edrs-docstore/pkg/logger"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id"`
}

// statusFor maps the error taxonomy onto HTTP status codes. Configuration errors fall
// through to 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrPathTraversal):
		return http.StatusBadRequest, "Invalid path"
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, "Validation error"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, apperrors.ErrPermission), errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "Permission denied"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "Resource already exists"
	case errors.Is(err, apperrors.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "Payload too large"
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// CustomHTTPErrorHandler handles all errors returned by handlers and middleware.
// Client errors carry the AppError message; server errors are logged and replaced by a
// generic message.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var code int
	var message string

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = fmt.Sprintf("%v", httpErr.Message)
	} else {
		code, message = statusFor(err)

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && code < http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = "unknown"
	}

	detail := logger.SanitizeLogMessage(err.Error())
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("internal_server_error request_id=%s status=%d code=%s error=%s",
			requestID, code, apperrors.Code(err), detail)
		if code != http.StatusServiceUnavailable {
			message = "Internal server error"
		}
	} else {
		c.Logger().Warnf("client_error request_id=%s status=%d code=%s error=%s",
			requestID, code, apperrors.Code(err), detail)
	}

	resp := errorResponse{Error: message, Code: apperrors.Code(err), RequestID: requestID}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
