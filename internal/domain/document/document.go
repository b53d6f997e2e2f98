package document

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of document categories. The zero value is not a valid type.
type Type uint8

const (
	TypeUnknown Type = iota
	TypePIDDiagram
	TypeImage
	TypeDocument
	TypeArchive
	TypeAnalysisResult
)

var typeNames = [...]string{
	TypeUnknown:        "",
	TypePIDDiagram:     "pid-diagrams",
	TypeImage:          "images",
	TypeDocument:       "documents",
	TypeArchive:        "archives",
	TypeAnalysisResult: "analysis-results",
}

// Types lists every valid document type in declaration order.
func Types() []Type {
	types := make([]Type, 0, len(typeNames)-1)
	for t := TypePIDDiagram; int(t) < len(typeNames); t++ {
		types = append(types, t)
	}
	return types
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) Valid() bool {
	return t > TypeUnknown && int(t) < len(typeNames)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid document type %d", uint8(t))
	}
	return []byte(typeNames[t]), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, ok := ParseType(string(text))
	if !ok {
		return fmt.Errorf("unknown document type %q", string(text))
	}
	*t = parsed
	return nil
}

func ParseType(s string) (Type, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return TypeUnknown, false
	}
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return TypeUnknown, false
}

var extensionTypes = map[string]Type{
	"pdf":  TypePIDDiagram,
	"dwg":  TypePIDDiagram,
	"dxf":  TypePIDDiagram,
	"png":  TypeImage,
	"jpg":  TypeImage,
	"jpeg": TypeImage,
	"tiff": TypeImage,
	"doc":  TypeDocument,
	"docx": TypeDocument,
	"xls":  TypeDocument,
	"xlsx": TypeDocument,
	"zip":  TypeArchive,
	"rar":  TypeArchive,
}

// Extension returns the lowercased extension of filename without the leading dot.
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
}

// TypeFromFilename infers the document type from the file extension.
func TypeFromFilename(filename string) (Type, bool) {
	t, ok := extensionTypes[Extension(filename)]
	return t, ok
}

// AllowedExtension reports whether uploads with this extension are accepted.
func AllowedExtension(filename string) bool {
	_, ok := extensionTypes[Extension(filename)]
	return ok
}

// Document is the registry record of an uploaded object.
type Document struct {
	ID          uuid.UUID
	OwnerID     int64
	RoleFolder  string
	ProjectName string
	Type        Type
	StorageKey  string
	Filename    string
	SizeBytes   int64
	ContentType string
	SourceID    *uuid.UUID
	UploadedAt  time.Time
}

type CreateInput struct {
	OwnerID     int64
	RoleFolder  string
	ProjectName string
	Type        Type
	StorageKey  string
	Filename    string
	SizeBytes   int64
	ContentType string
	SourceID    *uuid.UUID
	UploadedAt  time.Time
}

type ListFilter struct {
	OwnerID *int64
	Type    Type
	Project string
	// Search matches filenames case-insensitively.
	Search string
	Limit  int
	Offset int
}

type TypeStats struct {
	Type       Type
	Count      int64
	TotalBytes int64
}

type Stats struct {
	TotalDocuments int64
	TotalBytes     int64
	ByType         []TypeStats
	Recent         []*Document
}
