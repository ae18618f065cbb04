package auth

import "slices"

type PermissionChecker interface {
	HasAnyPermission(userPermissions []string, requiredPermissions []string) bool
	CanAuditReports(userPermissions []string) bool
	CanMarkPaid(userPermissions []string) bool
	IsAdmin(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

// HasAnyPermission treats admin as holding every permission.
func (c *DefaultPermissionChecker) HasAnyPermission(userPermissions []string, requiredPermissions []string) bool {
	if slices.Contains(userPermissions, PermissionAdmin) {
		return true
	}
	for _, required := range requiredPermissions {
		if slices.Contains(userPermissions, required) {
			return true
		}
	}
	return false
}

func (c *DefaultPermissionChecker) CanAuditReports(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermissionAuditReports})
}

func (c *DefaultPermissionChecker) CanMarkPaid(userPermissions []string) bool {
	return c.HasAnyPermission(userPermissions, []string{PermissionMarkPaid})
}

func (c *DefaultPermissionChecker) IsAdmin(userPermissions []string) bool {
	return slices.Contains(userPermissions, PermissionAdmin)
}
