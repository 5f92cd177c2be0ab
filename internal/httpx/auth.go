package httpx

import (
	"context"
	"net/http"
)

// Identity is injected by the fronting auth layer as trusted headers;
// this service never sees credentials.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleEmployee   Role = "employee"
)

type Identity struct {
	UserID string
	Role   Role
}

type ctxKey struct{}

// WithIdentity rejects requests without an X-User-Id header and stores
// the acting identity in the request context. Unknown roles degrade to
// employee, the least privileged.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-Id")
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		role := Role(r.Header.Get("X-User-Role"))
		switch role {
		case RoleAdmin, RoleSupervisor, RoleEmployee:
		default:
			role = RoleEmployee
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, Identity{UserID: uid, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// RequireRole gates a route subtree to the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := map[Role]bool{}
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}
			if !allowed[id.Role] {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
