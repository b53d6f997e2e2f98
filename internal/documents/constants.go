package documents

import "time"

const (
	errExtensionNotAllowedFmt = "file extension %q is not allowed"
	errTypeInvalid            = "document type is invalid"
	errTypeMismatchFmt        = "document type %s does not match a .%s file (%s)"
	errAnalysisViaSource      = "analysis results are attached to a source document"
	errAnalysisExtension      = "analysis results must be .json files"
	errAnalysisOfAnalysis     = "analysis results cannot be attached to another analysis result"
	errOtherOwner             = "documents of other users are restricted to administrators"
	errPrefixOutsideScope     = "prefix is outside the caller's storage area"
	errEmptyFile              = "file is empty"
	errFileTooLargeFmt        = "file exceeds the %d MiB upload limit"

	// cleanupTimeout bounds removing an object whose registry insert failed.
	cleanupTimeout = 10 * time.Second
)
