package handler

import "time"

const (
	jsonKeyStatus = "status"
	jsonKeyChecks = "checks"
	statusOK      = "ok"
	statusFail    = "fail"
	healthTimeout = 3 * time.Second

	paramID       = "id"
	formFile      = "file"
	formProject   = "project_name"
	formType      = "document_type"
	headerContent = "Content-Type"

	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidDocumentID       = "invalid document id"
	msgInvalidUserID           = "invalid user id"
	msgFileRequired            = "multipart field 'file' is required"
	msgFileOpenFailed          = "failed to read uploaded file"
	msgUnknownDocumentTypeFmt  = "unknown document type, expected one of: %s"
	msgUnknownRole             = "unknown role"
	msgInvalidQuery            = "invalid query parameters"
)
