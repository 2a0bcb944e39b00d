package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

type ctxKey string

const callerKey ctxKey = "caller"

type caller struct {
	user   *models.User
	claims *auth.Claims
}

func withCaller(ctx context.Context, c caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func callerFrom(ctx context.Context) (caller, bool) {
	c, ok := ctx.Value(callerKey).(caller)
	return c, ok
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticate admits requests carrying a valid bearer token of an ACTIVE
// account and stores the caller in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeError(w, r, common.Unauthorized("missing bearer token"))
			return
		}

		user, claims, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := withCaller(r.Context(), caller{user: user, claims: claims})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRoles admits callers holding at least one of roles. Every role
// held counts, whether or not it is switched on. An empty set admits everyone.
func (s *Server) requireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(roles) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := callerFrom(r.Context())
			if !ok {
				s.writeError(w, r, common.Unauthorized("authentication required"))
				return
			}
			if !models.HasAnyRole(models.RoleNames(c.user), roles) {
				s.writeError(w, r, common.Forbidden("insufficient role, one of %s required", strings.Join(roles, ", ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
