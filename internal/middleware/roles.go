package middleware

import (
	"net/http"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

// Requirement is what a route demands of the caller: a role, or ownership
// of the addressed resource.
type Requirement struct {
	Role    models.Role
	OwnerID string
	Self    bool
}

func RoleRequirement(role models.Role) Requirement { return Requirement{Role: role} }

func SelfRequirement(ownerID string) Requirement { return Requirement{OwnerID: ownerID, Self: true} }

// Authorize grants access when the caller is an admin, or holds the
// required role, or owns the resource of a self requirement.
func Authorize(p models.Principal, req Requirement) error {
	if p.IsAdmin() {
		return nil
	}
	if req.Self {
		if req.OwnerID != "" && req.OwnerID == p.ID {
			return nil
		}
		return common.ErrForbidden
	}
	if req.Role != "" && p.Role == req.Role {
		return nil
	}
	return common.ErrForbidden
}

func principalOrFail(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		httpx.WriteErr(w, r, common.ErrUnauthenticated)
	}
	return p, ok
}

// RequireRole must run after a Guard middleware.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalOrFail(w, r)
			if !ok {
				return
			}
			if err := Authorize(p, RoleRequirement(role)); err != nil {
				httpx.WriteErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrAdmin lets through admins and the owner named by ownerOf.
func RequireSelfOrAdmin(ownerOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalOrFail(w, r)
			if !ok {
				return
			}
			if err := Authorize(p, SelfRequirement(ownerOf(r))); err != nil {
				httpx.WriteErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
