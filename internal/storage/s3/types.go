package s3

import (
	"fmt"
	"path"
	"strings"
	"time"

	"edrs-docstore/internal/domain/document"
)

const (
	metaOrganization = "organization"
	metaUploadSource = "upload-source"
	metaFileType     = "file-type"
	metaUploadDate   = "upload-date"
	metaOwnerID      = "owner-id"
	metaDocumentType = "document-type"

	uploadSource        = "edrs-system"
	engineeringDocument = "engineering-document"

	contentTypeOctetStream = "application/octet-stream"
	contentTypeZip         = "application/zip"
	cacheControlDrawings   = "max-age=86400"
	cacheControlDefault    = "max-age=3600"
	dispositionInline      = "inline"
	dispositionAttachment  = `attachment; filename="%s"`
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tiff": "image/tiff",
}

// ObjectParams are the headers and metadata written with an object.
type ObjectParams struct {
	ContentType        string
	ContentDisposition string
	CacheControl       string
	ContentLength      int64
	Metadata           map[string]string
}

// ObjectParamsInput describes the object being stored.
type ObjectParamsInput struct {
	Key          string
	ContentType  string
	Size         int64
	Organization string
	OwnerID      int64
	Type         document.Type
	UploadedAt   time.Time
}

// ParamsFor picks content headers by extension. Drawings download as attachments and
// are cached for a day, images render inline.
func ParamsFor(in ObjectParamsInput) ObjectParams {
	name := path.Base(in.Key)
	ext := document.Extension(name)

	params := ObjectParams{
		ContentType:   in.ContentType,
		CacheControl:  cacheControlDefault,
		ContentLength: in.Size,
		Metadata: map[string]string{
			metaOrganization: in.Organization,
			metaUploadSource: uploadSource,
			metaFileType:     engineeringDocument,
			metaUploadDate:   in.UploadedAt.UTC().Format(time.RFC3339),
			metaOwnerID:      fmt.Sprintf("%d", in.OwnerID),
			metaDocumentType: in.Type.String(),
		},
	}

	switch {
	case ext == "pdf" || ext == "dwg" || ext == "dxf":
		params.ContentType = contentTypeOctetStream
		params.ContentDisposition = fmt.Sprintf(dispositionAttachment, strings.ReplaceAll(name, `"`, ""))
		params.CacheControl = cacheControlDrawings
	case imageContentTypes[ext] != "":
		params.ContentType = imageContentTypes[ext]
		params.ContentDisposition = dispositionInline
	case ext == "zip":
		params.ContentType = contentTypeZip
	}

	if params.ContentType == "" {
		params.ContentType = contentTypeOctetStream
	}
	return params
}

// ObjectInfo is one listed object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Listing is one page of a delimited prefix listing.
type Listing struct {
	Prefix    string       `json:"prefix"`
	Folders   []string     `json:"folders"`
	Objects   []ObjectInfo `json:"objects"`
	NextToken string       `json:"next_token,omitempty"`
	Truncated bool         `json:"truncated"`
}
