package pathing

import (
	"fmt"

	"edrs-docstore/internal/domain/user"
	apperrors "edrs-docstore/pkg/errors"
)

const (
	errRoleFolderMissingFmt = "role %s has no storage folder"
	errRoleFolderInvalidFmt = "storage folder %q for role %s is not a safe path segment"
	errRoleUnknownFmt       = "unknown role %s"
)

// RoleFolders is an immutable role to folder-segment table. Several roles may share a folder.
type RoleFolders struct {
	folders map[user.Role]string
	known   map[string]struct{}
}

// DefaultRoleFolders returns the organization's standard table.
func DefaultRoleFolders() RoleFolders {
	f, err := NewRoleFolders(map[user.Role]string{
		user.RoleAdministrator:      "administrators",
		user.RoleProjectManager:     "project-managers",
		user.RoleSeniorEngineer:     "project-managers",
		user.RoleLeadEngineer:       "lead-engineers",
		user.RoleProcessEngineer:    "process-engineers",
		user.RoleDesignEngineer:     "design-engineers",
		user.RoleQAQCEngineer:       "qa-qc-engineers",
		user.RoleInstrumentEngineer: "engineers",
		user.RoleMechanicalEngineer: "engineers",
		user.RoleSafetyEngineer:     "engineers",
	})
	if err != nil {
		panic(err)
	}
	return f
}

// NewRoleFolders copies m. Every valid role must be present with a safe, non-empty folder.
func NewRoleFolders(m map[user.Role]string) (RoleFolders, error) {
	folders := make(map[user.Role]string, len(m))
	known := make(map[string]struct{}, len(m))

	for role, folder := range m {
		if !role.Valid() {
			return RoleFolders{}, apperrors.Configuration(fmt.Sprintf(errRoleUnknownFmt, role))
		}
		if !isSafeSegment(folder) {
			return RoleFolders{}, apperrors.Configuration(fmt.Sprintf(errRoleFolderInvalidFmt, folder, role))
		}
		folders[role] = folder
		known[folder] = struct{}{}
	}

	for _, role := range user.Roles() {
		if _, ok := folders[role]; !ok {
			return RoleFolders{}, apperrors.Configuration(fmt.Sprintf(errRoleFolderMissingFmt, role))
		}
	}

	return RoleFolders{folders: folders, known: known}, nil
}

// Folder returns the segment for role, or a Configuration error when the role is unknown.
func (f RoleFolders) Folder(role user.Role) (string, error) {
	folder, ok := f.folders[role]
	if !ok {
		return "", apperrors.Configuration(fmt.Sprintf(errRoleUnknownFmt, role))
	}
	return folder, nil
}

// HasFolder reports whether some role maps to folder.
func (f RoleFolders) HasFolder(folder string) bool {
	_, ok := f.known[folder]
	return ok
}
