package presets

import (
	"edrs-docstore/internal/domain/document"
	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/rbac"
)

const (
	ResourceDiagram  rbac.Resource = "diagram"
	ResourceDocument rbac.Resource = "document"
	ResourceAnalysis rbac.Resource = "analysis"
	ResourceStorage  rbac.Resource = "storage"
)

const (
	ActionRead   rbac.Action = "read"
	ActionWrite  rbac.Action = "write"
	ActionBrowse rbac.Action = "browse"
)

// RoleFor converts a registry role into an rbac role.
func RoleFor(r user.Role) rbac.Role {
	if !r.Valid() {
		return ""
	}
	return rbac.Role(r.String())
}

// ResourceFor maps a document type to the resource guarding it.
func ResourceFor(t document.Type) rbac.Resource {
	switch t {
	case document.TypePIDDiagram:
		return ResourceDiagram
	case document.TypeAnalysisResult:
		return ResourceAnalysis
	default:
		return ResourceDocument
	}
}

var roleLevels = map[user.Role]int{
	user.RoleAdministrator:      100,
	user.RoleProjectManager:     90,
	user.RoleSeniorEngineer:     80,
	user.RoleLeadEngineer:       70,
	user.RoleProcessEngineer:    60,
	user.RoleDesignEngineer:     50,
	user.RoleInstrumentEngineer: 45,
	user.RoleMechanicalEngineer: 40,
	user.RoleQAQCEngineer:       30,
	user.RoleSafetyEngineer:     20,
}

var diagramAuthors = []user.Role{
	user.RoleProjectManager,
	user.RoleSeniorEngineer,
	user.RoleLeadEngineer,
	user.RoleProcessEngineer,
	user.RoleDesignEngineer,
	user.RoleInstrumentEngineer,
	user.RoleMechanicalEngineer,
}

var analysisAuthors = []user.Role{
	user.RoleProjectManager,
	user.RoleSeniorEngineer,
	user.RoleLeadEngineer,
	user.RoleProcessEngineer,
	user.RoleQAQCEngineer,
	user.RoleSafetyEngineer,
}

// EDRS returns the capability matrix of the document store. Every role reads and browses
// its own area and uploads general documents. Diagram and analysis uploads are limited to
// the engineering disciplines that produce them.
func EDRS() rbac.Config {
	all := []rbac.Action{ActionRead, ActionWrite}

	cfg := rbac.Config{
		Resources:    []rbac.Resource{ResourceDiagram, ResourceDocument, ResourceAnalysis, ResourceStorage},
		Actions:      []rbac.Action{ActionRead, ActionWrite, ActionBrowse},
		Capabilities: make(map[rbac.Role]map[rbac.Resource][]rbac.Action),
	}

	for _, r := range user.Roles() {
		role := RoleFor(r)
		cfg.Roles = append(cfg.Roles, rbac.RoleDefinition{Name: role, Level: roleLevels[r]})
		cfg.Capabilities[role] = map[rbac.Resource][]rbac.Action{
			ResourceDiagram:  {ActionRead},
			ResourceDocument: all,
			ResourceAnalysis: {ActionRead},
			ResourceStorage:  {ActionRead, ActionBrowse},
		}
	}

	for _, r := range diagramAuthors {
		cfg.Capabilities[RoleFor(r)][ResourceDiagram] = all
	}
	for _, r := range analysisAuthors {
		cfg.Capabilities[RoleFor(r)][ResourceAnalysis] = all
	}

	admin := RoleFor(user.RoleAdministrator)
	cfg.Capabilities[admin][ResourceDiagram] = all
	cfg.Capabilities[admin][ResourceAnalysis] = all

	return cfg
}
