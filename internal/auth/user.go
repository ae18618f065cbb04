package auth

import (
	"context"
	"slices"
)

const (
	PermissionAdmin        = "admin"
	PermissionAuditReports = "audit_reports"
	PermissionMarkPaid     = "mark_paid"
)

// User is the authenticated principal attached to a request.
type User struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Companies   []string `json:"companies,omitempty"`
}

func (u *User) HasPermission(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

func (u *User) HasAnyPermission(permissions []string) bool {
	for _, p := range permissions {
		if u.HasPermission(p) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasPermission(PermissionAdmin)
}

// CanAccessCompany is true for admins and for users granted the company.
func (u *User) CanAccessCompany(companyID string) bool {
	if companyID == "" {
		return false
	}
	return u.IsAdmin() || slices.Contains(u.Companies, companyID)
}

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
