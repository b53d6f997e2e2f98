package rbac

// Role represents a user's organizational role (hierarchical)
type Role string

// Resource represents a type of resource in the system
type Resource string

// Action represents an operation on a resource
type Action string

// RoleDefinition defines a role and its privilege level
type RoleDefinition struct {
	Name  Role
	Level int
}
