package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/expense-reimbursement/internal"
	"github.com/frahmantamala/expense-reimbursement/internal/transport"
)

var errInsufficientPermissions = errors.NewForbiddenError("Forbidden: insufficient permissions", "INSUFFICIENT_PERMISSIONS")

type RBACAuthorization struct {
	*transport.BaseHandler
	checker PermissionChecker
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
	}
}

func (ra *RBACAuthorization) require(name string, allowed func(perms []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.Logger.Warn("authorization check failed: user not found in context")
				ra.WriteAppError(w, errors.ErrInvalidToken)
				return
			}

			if !allowed(user.Permissions) {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required", name,
					"user_permissions", user.Permissions)
				ra.WriteAppError(w, errInsufficientPermissions)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Middleware admits users holding permission (admins always pass).
func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return ra.require(permission, func(perms []string) bool {
		return ra.checker.HasAnyPermission(perms, []string{permission})
	})
}

func (ra *RBACAuthorization) RequireAuditReports() func(http.Handler) http.Handler {
	return ra.require(PermissionAuditReports, ra.checker.CanAuditReports)
}

func (ra *RBACAuthorization) RequireMarkPaid() func(http.Handler) http.Handler {
	return ra.require(PermissionMarkPaid, ra.checker.CanMarkPaid)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require(PermissionAdmin, ra.checker.IsAdmin)
}
