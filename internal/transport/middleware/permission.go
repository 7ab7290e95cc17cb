package middleware

import (
	"net/http"

	"github.com/frahmantamala/opsboard/internal"
	"github.com/frahmantamala/opsboard/internal/core/rbac"
	"github.com/frahmantamala/opsboard/internal/transport"
)

// PermissionChecker answers whether a role grants a permission.
type PermissionChecker interface {
	Can(role, permission string) bool
}

// RequirePermission lets the request through when the caller's role grants
// any of perms. It must run after the auth middleware.
func RequirePermission(checker PermissionChecker, base *transport.BaseHandler, perms ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				base.WriteAppError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
				return
			}

			for _, perm := range perms {
				if checker.Can(p.Role, string(perm)) {
					next.ServeHTTP(w, r)
					return
				}
			}

			base.Logger.Warn("access denied: role lacks required permission",
				"user_id", p.ID,
				"role", p.Role,
				"required_permissions", rbac.Strings(perms))
			base.WriteAppError(w, internal.ErrForbidden)
		})
	}
}
