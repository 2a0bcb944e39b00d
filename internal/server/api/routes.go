package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

// route describes one endpoint. Non-public routes pass the authentication
// gate and then the role gate, which admits callers holding any of roles.
// Limited routes are rate limited per client address.
type route struct {
	method  string
	pattern string
	public  bool
	roles   []string
	limited bool
	handler http.HandlerFunc
}

var (
	adminOnly      = []string{models.RoleAdmin}
	adminModerator = []string{models.RoleAdmin, models.RoleModerator}
)

func (s *Server) routes() []route {
	return []route{
		// auth
		{method: http.MethodPost, pattern: "/auth/register", public: true, limited: true, handler: s.handleRegister},
		{method: http.MethodPost, pattern: "/auth/login", public: true, limited: true, handler: s.handleLogin},
		{method: http.MethodGet, pattern: "/auth/verify-email", public: true, handler: s.handleVerifyEmail},
		{method: http.MethodPost, pattern: "/auth/forgot-password", public: true, limited: true, handler: s.handleForgotPassword},
		{method: http.MethodPost, pattern: "/auth/reset-password", public: true, limited: true, handler: s.handleResetPassword},
		{method: http.MethodPatch, pattern: "/auth/change-password", handler: s.handleChangePassword},
		{method: http.MethodGet, pattern: "/auth/validate-token", handler: s.handleValidateToken},
		{method: http.MethodGet, pattern: "/auth/profile", handler: s.handleProfile},
		{method: http.MethodPost, pattern: "/auth/logout", handler: s.handleLogout},

		// users
		{method: http.MethodPost, pattern: "/users", roles: adminOnly, handler: s.handleCreateUser},
		{method: http.MethodGet, pattern: "/users", roles: adminModerator, handler: s.handleListUsers},
		{method: http.MethodGet, pattern: "/users/stats", roles: adminOnly, handler: s.handleUserStats},
		{method: http.MethodGet, pattern: "/users/me", handler: s.handleProfile},
		{method: http.MethodPatch, pattern: "/users/me", handler: s.handleUpdateProfile},
		{method: http.MethodGet, pattern: "/users/{id}", roles: adminModerator, handler: s.handleGetUser},
		{method: http.MethodPatch, pattern: "/users/{id}", roles: adminOnly, handler: s.handleUpdateUser},
		{method: http.MethodPatch, pattern: "/users/{id}/status", roles: adminModerator, handler: s.handleUpdateUserStatus},
		{method: http.MethodPatch, pattern: "/users/{id}/roles", roles: adminOnly, handler: s.handleAssignRoles},
		{method: http.MethodDelete, pattern: "/users/{id}", roles: adminOnly, handler: s.handleDeleteUser},
		{method: http.MethodPatch, pattern: "/users/{id}/soft-delete", roles: adminOnly, handler: s.handleSoftDeleteUser},

		// roles
		{method: http.MethodPost, pattern: "/roles", roles: adminOnly, handler: s.handleCreateRole},
		{method: http.MethodGet, pattern: "/roles", roles: adminModerator, handler: s.handleListRoles},
		{method: http.MethodGet, pattern: "/roles/permissions", roles: adminOnly, handler: s.handlePermissions},
		{method: http.MethodGet, pattern: "/roles/stats", roles: adminOnly, handler: s.handleRoleStats},
		{method: http.MethodPost, pattern: "/roles/initialize-defaults", roles: adminOnly, handler: s.handleInitializeDefaults},
		{method: http.MethodGet, pattern: "/roles/{id}", roles: adminModerator, handler: s.handleGetRole},
		{method: http.MethodPatch, pattern: "/roles/{id}", roles: adminOnly, handler: s.handleUpdateRole},
		{method: http.MethodPatch, pattern: "/roles/{id}/permissions", roles: adminOnly, handler: s.handleAssignPermissions},
		{method: http.MethodPatch, pattern: "/roles/{id}/toggle-status", roles: adminOnly, handler: s.handleToggleRole},
		{method: http.MethodDelete, pattern: "/roles/{id}", roles: adminOnly, handler: s.handleDeleteRole},

		// operations
		{method: http.MethodGet, pattern: "/health", public: true, handler: s.handleHealth},
		{method: http.MethodGet, pattern: "/metrics", public: true, handler: s.metrics.Handler().ServeHTTP},
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, s.requestLogger, s.recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, r, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, r, http.StatusMethodNotAllowed, "Cannot "+r.Method+" "+r.URL.Path)
	})

	for _, rt := range s.routes() {
		r.Method(rt.method, rt.pattern, s.chain(rt))
	}

	return r
}

// chain wraps the handler of rt in the middleware its descriptor asks for.
func (s *Server) chain(rt route) http.Handler {
	var h http.Handler = rt.handler
	if !rt.public {
		h = s.authenticate(s.requireRoles(rt.roles)(h))
	}
	if rt.limited {
		h = s.rateLimit(rt.pattern)(h)
	}
	return h
}
