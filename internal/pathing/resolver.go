package pathing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"
)

const (
	// DefaultRoot is the organization-wide top-level folder.
	DefaultRoot = "rejlers-abudhabi"

	projectsSegment = "projects"
	keySeparator    = "/"
	keySegmentCount = 9

	errRootInvalidFmt      = "storage root %q is not a safe path segment"
	errDocumentTypeUnknown = "unknown document type %s"
	errUserIDInvalid       = "user id must be positive"
	errTimestampZero       = "upload timestamp is required"
	errKeyMalformed        = "storage key is malformed"
	errKeyWrongRoot        = "storage key is outside the storage root"
	errKeyTraversal        = "storage key cannot contain path traversal"
	errPrefixMalformed     = "prefix is malformed"
)

// StorageKey is the object key of a stored document.
type StorageKey string

func (k StorageKey) String() string { return string(k) }

// KeyInput carries everything a storage key is derived from.
type KeyInput struct {
	Role        user.Role
	UserID      int64
	ProjectName string
	Type        document.Type
	Timestamp   time.Time
	Filename    string
}

// KeyParts is a parsed storage key.
type KeyParts struct {
	RoleFolder  string
	UserID      int64
	ProjectName string
	Type        document.Type
	Year        int
	Month       int
	Filename    string
}

// Resolver derives storage keys of the form
// {root}/{role-folder}/{user-id}/projects/{project}/{type}/{yyyy}/{MM}/{filename}.
// It holds only immutable configuration and is safe for concurrent use.
type Resolver struct {
	root    string
	folders RoleFolders
}

func NewResolver(root string, folders RoleFolders) (*Resolver, error) {
	if !isSafeSegment(root) {
		return nil, apperrors.Configuration(fmt.Sprintf(errRootInvalidFmt, root))
	}
	if folders.folders == nil {
		return nil, apperrors.Configuration(fmt.Sprintf(errRoleFolderMissingFmt, user.RoleAdministrator))
	}
	return &Resolver{root: root, folders: folders}, nil
}

func (r *Resolver) Root() string {
	return r.root
}

// Resolve computes the storage key. Unknown roles and types are Configuration errors,
// unsafe names are Validation errors. No key is produced on error.
func (r *Resolver) Resolve(in KeyInput) (StorageKey, error) {
	folder, err := r.folders.Folder(in.Role)
	if err != nil {
		return "", err
	}
	if !in.Type.Valid() {
		return "", apperrors.Configuration(fmt.Sprintf(errDocumentTypeUnknown, in.Type))
	}
	if in.UserID <= 0 {
		return "", apperrors.Validation(errUserIDInvalid)
	}
	if in.Timestamp.IsZero() {
		return "", apperrors.Validation(errTimestampZero)
	}

	project, err := SanitizeProjectName(in.ProjectName)
	if err != nil {
		return "", err
	}
	filename, err := SanitizeFilename(in.Filename)
	if err != nil {
		return "", err
	}

	return r.build(folder, in.UserID, project, in.Type, in.Timestamp.UTC(), filename), nil
}

func (r *Resolver) build(folder string, userID int64, project string, t document.Type, ts time.Time, filename string) StorageKey {
	return StorageKey(strings.Join([]string{
		r.root,
		folder,
		strconv.FormatInt(userID, 10),
		projectsSegment,
		project,
		t.String(),
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", int(ts.Month())),
		filename,
	}, keySeparator))
}

// ParseKey validates a key produced by Resolve and splits it into its parts.
func (r *Resolver) ParseKey(key string) (KeyParts, error) {
	if hasTraversal(key) {
		return KeyParts{}, apperrors.PathTraversal(errKeyTraversal)
	}

	segs := strings.Split(key, keySeparator)
	if len(segs) != keySegmentCount {
		return KeyParts{}, apperrors.Validation(errKeyMalformed)
	}
	for _, s := range segs {
		if !isSafeSegment(s) {
			return KeyParts{}, apperrors.Validation(errKeyMalformed)
		}
	}
	if segs[0] != r.root {
		return KeyParts{}, apperrors.Validation(errKeyWrongRoot)
	}
	if !r.folders.HasFolder(segs[1]) || segs[3] != projectsSegment {
		return KeyParts{}, apperrors.Validation(errKeyMalformed)
	}

	userID, err := strconv.ParseInt(segs[2], 10, 64)
	if err != nil || userID <= 0 {
		return KeyParts{}, apperrors.Validation(errKeyMalformed)
	}
	t, ok := document.ParseType(segs[5])
	if !ok {
		return KeyParts{}, apperrors.Validation(errKeyMalformed)
	}
	year, err := strconv.Atoi(segs[6])
	if err != nil || len(segs[6]) != 4 {
		return KeyParts{}, apperrors.Validation(errKeyMalformed)
	}
	month, err := strconv.Atoi(segs[7])
	if err != nil || len(segs[7]) != 2 || month < 1 || month > 12 {
		return KeyParts{}, apperrors.Validation(errKeyMalformed)
	}

	return KeyParts{
		RoleFolder:  segs[1],
		UserID:      userID,
		ProjectName: segs[4],
		Type:        t,
		Year:        year,
		Month:       month,
		Filename:    segs[8],
	}, nil
}

// DeriveAnalysisKey places an analysis result next to its source document: same role,
// owner, project, year and month, under analysis-results.
func (r *Resolver) DeriveAnalysisKey(sourceKey, filename string) (StorageKey, error) {
	parts, err := r.ParseKey(sourceKey)
	if err != nil {
		return "", err
	}
	clean, err := SanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	ts := time.Date(parts.Year, time.Month(parts.Month), 1, 0, 0, 0, 0, time.UTC)
	return r.build(parts.RoleFolder, parts.UserID, parts.ProjectName, document.TypeAnalysisResult, ts, clean), nil
}

// UserPrefix is the folder holding every document owned by userID, with a trailing slash.
func (r *Resolver) UserPrefix(role user.Role, userID int64) (string, error) {
	folder, err := r.folders.Folder(role)
	if err != nil {
		return "", err
	}
	if userID <= 0 {
		return "", apperrors.Validation(errUserIDInvalid)
	}
	return r.root + keySeparator + folder + keySeparator + strconv.FormatInt(userID, 10) + keySeparator, nil
}

// RootPrefix is the prefix covering every stored document.
func (r *Resolver) RootPrefix() string {
	return r.root + keySeparator
}

// ValidatePrefix accepts a listing prefix made of safe segments, optionally ending in a
// slash.
func ValidatePrefix(prefix string) error {
	if hasTraversal(prefix) {
		return apperrors.PathTraversal(errKeyTraversal)
	}
	trimmed := strings.TrimSuffix(prefix, keySeparator)
	if trimmed == "" {
		return apperrors.Validation(errPrefixMalformed)
	}
	for _, seg := range strings.Split(trimmed, keySeparator) {
		if !isSafeSegment(seg) {
			return apperrors.Validation(errPrefixMalformed)
		}
	}
	return nil
}
