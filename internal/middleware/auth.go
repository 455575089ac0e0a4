package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nordlane/cloudcrm/internal/api/httpx"
	"github.com/nordlane/cloudcrm/internal/auth"
	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the identity put in the context by Guard.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

// CredentialSource pulls the raw token out of a request.
type CredentialSource func(r *http.Request) string

func FromCookie(r *http.Request) string {
	c, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func FromBearer(r *http.Request) string {
	ah := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(ah, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Guard authenticates requests against the token manager. Each route picks
// its credential carrier.
type Guard struct {
	tokens *auth.TokenManager
}

func NewGuard(tokens *auth.TokenManager) *Guard {
	return &Guard{tokens: tokens}
}

// Authenticate fails with common.ErrTokenExpired for an expired token and
// common.ErrUnauthenticated for anything else that does not verify.
func (g *Guard) Authenticate(r *http.Request, src CredentialSource) (models.Principal, error) {
	raw := src(r)
	if raw == "" {
		return models.Principal{}, common.ErrUnauthenticated
	}
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return models.Principal{}, common.ErrTokenExpired
		}
		return models.Principal{}, common.ErrUnauthenticated
	}
	return claims.Principal(), nil
}

func (g *Guard) middleware(src CredentialSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.Authenticate(r, src)
			if err != nil {
				httpx.WriteErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Cookie authenticates with the session cookie.
func (g *Guard) Cookie(next http.Handler) http.Handler { return g.middleware(FromCookie)(next) }

// Bearer authenticates with the Authorization header.
func (g *Guard) Bearer(next http.Handler) http.Handler { return g.middleware(FromBearer)(next) }
