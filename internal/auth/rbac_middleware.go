package auth

import (
	"fmt"

	"edrs-docstore/internal/domain/user"
	"edrs-docstore/internal/rbac"
	"edrs-docstore/internal/rbac/presets"
	apperrors "edrs-docstore/pkg/errors"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacChecker *rbac.Checker
}

func NewRBACMiddleware(checker *rbac.Checker) *RBACMiddleware {
	return &RBACMiddleware{rbacChecker: checker}
}

// Check reports whether p holds action on resource, as a Permission error.
func (m *RBACMiddleware) Check(p user.Principal, resource rbac.Resource, action rbac.Action) error {
	if err := m.rbacChecker.Authorize(presets.RoleFor(p.Role), resource, action); err != nil {
		return apperrors.Permission(fmt.Sprintf(msgCapabilityDenied, p.Role, action, resource))
	}
	return nil
}

// RequireAction rejects callers whose role lacks action on resource.
func (m *RBACMiddleware) RequireAction(resource rbac.Resource, action rbac.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := GetPrincipal(c)
			if err != nil {
				return err
			}
			if err := m.Check(p, resource, action); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireAdministrator limits a route to the administrator role.
func (m *RBACMiddleware) RequireAdministrator() echo.MiddlewareFunc {
	admin := presets.RoleFor(user.RoleAdministrator)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := GetPrincipal(c)
			if err != nil {
				return err
			}
			if err := m.rbacChecker.RequireRole(presets.RoleFor(p.Role), admin); err != nil {
				return apperrors.Permission(msgAdministratorRequired)
			}
			return next(c)
		}
	}
}
