package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/metrics"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/ratelimit"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
)

const (
	adminID = "11111111-1111-1111-1111-111111111111"
	modID   = "22222222-2222-2222-2222-222222222222"
	userID  = "33333333-3333-3333-3333-333333333333"
)

// -------- test fakes --------

type fakeAuth struct {
	AuthService
	tokens     map[string]*models.User
	registerFn func(services.RegisterInput) (*services.AuthResult, error)
	loggedOut  []string
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	u, ok := f.tokens[token]
	if !ok {
		return nil, nil, common.ErrInvalidToken
	}
	c := &auth.Claims{}
	c.Subject = u.ID
	c.ID = "jti-" + token
	return u, c, nil
}

func (f *fakeAuth) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	return f.registerFn(in)
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if password != "Secret1!" {
		return nil, common.Unauthorized("invalid credentials")
	}
	return &services.AuthResult{User: &models.User{Email: email}, AccessToken: "tok", Message: "Login successful"}, nil
}

func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) (string, error) {
	return "If an account with that email exists, a password reset link has been sent.", nil
}

func (f *fakeAuth) Logout(ctx context.Context, claims *auth.Claims) error {
	f.loggedOut = append(f.loggedOut, claims.ID)
	return nil
}

type fakeUsers struct {
	UserService
	deleted []string
	listErr error
}

func (f *fakeUsers) List(ctx context.Context, filter models.UserListFilter) (models.Page[models.User], error) {
	if f.listErr != nil {
		return models.Page[models.User]{}, f.listErr
	}
	return models.NewPage([]models.User{{ID: userID, Email: "u@example.com"}}, 1, filter.Page, filter.Limit), nil
}

func (f *fakeUsers) Stats(ctx context.Context) (*models.UserStats, error) {
	return &models.UserStats{Total: 3}, nil
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*models.User, error) {
	if id != userID {
		return nil, common.NotFound("user not found")
	}
	return &models.User{ID: id, Email: "u@example.com"}, nil
}

func (f *fakeUsers) Delete(ctx context.Context, actor *models.User, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRoles struct {
	RoleService
}

func (f *fakeRoles) AvailablePermissions() []models.Permission {
	return models.Permissions()
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// -------- helpers --------

func role(name string, active bool) models.Role {
	return models.Role{ID: name, Name: name, IsActive: active}
}

type harness struct {
	srv   *Server
	auth  *fakeAuth
	users *fakeUsers
}

func newHarness(t *testing.T, limiter Limiter) *harness {
	t.Helper()
	fa := &fakeAuth{tokens: map[string]*models.User{
		"admin":      {ID: adminID, Email: "admin@example.com", Status: models.StatusActive, Roles: []models.Role{role(models.RoleAdmin, true)}},
		"mod":        {ID: modID, Email: "mod@example.com", Status: models.StatusActive, Roles: []models.Role{role(models.RoleModerator, true)}},
		"user":       {ID: userID, Email: "u@example.com", Status: models.StatusActive, Roles: []models.Role{role(models.RoleUser, true)}},
		"idle-admin": {ID: adminID, Email: "idle@example.com", Status: models.StatusActive, Roles: []models.Role{role(models.RoleAdmin, false)}},
		"idle-mod":   {ID: modID, Email: "idle-mod@example.com", Status: models.StatusActive, Roles: []models.Role{role(models.RoleModerator, false)}},
	}}
	fu := &fakeUsers{}

	srv, err := NewHTTPServer(Options{
		Auth:    fa,
		Users:   fu,
		Roles:   &fakeRoles{},
		DB:      fakePinger{},
		Limiter: limiter,
		Metrics: metrics.New(),
		Logger:  logging.Nop(),
	})
	require.NoError(t, err)
	return &harness{srv: srv, auth: fa, users: fu}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "203.0.113.7:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var env errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// -------- tests --------

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, rec.Body.String())

	h.srv.db = fakePinger{err: errors.New("connection refused")}
	rec = h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthenticationGate(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 401, env.StatusCode)
	assert.Equal(t, "/auth/profile", env.Path)
	assert.Equal(t, http.MethodGet, env.Method)
	assert.Equal(t, "Unauthorized", env.Error)
	assert.Equal(t, "missing bearer token", env.Message)
	assert.NotEmpty(t, env.Timestamp)

	rec = h.do(t, http.MethodGet, "/auth/profile", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeEnvelope(t, rec).Message)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Basic admin")
	rec = httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_HidesSecretsAndListsPermissions(t *testing.T) {
	h := newHarness(t, nil)
	hash := "hashed"
	h.auth.tokens["secret"] = &models.User{
		ID:           userID,
		Email:        "s@example.com",
		PasswordHash: hash,
		Status:       models.StatusActive,
		Roles:        []models.Role{{Name: "EDITOR", IsActive: true, Permissions: []string{models.PermReportsView}}},
	}

	for _, path := range []string{"/auth/profile", "/users/me"} {
		rec := h.do(t, http.MethodGet, path, "secret", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), hash)

		var body struct {
			User struct {
				Email       string   `json:"email"`
				Permissions []string `json:"permissions"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "s@example.com", body.User.Email)
		assert.Equal(t, []string{models.PermReportsView}, body.User.Permissions)
	}
}

func TestRoleGate_OrSemantics(t *testing.T) {
	h := newHarness(t, nil)

	cases := []struct {
		token, method, path string
		want                int
	}{
		{"mod", http.MethodGet, "/users", http.StatusOK},
		{"admin", http.MethodGet, "/users", http.StatusOK},
		{"user", http.MethodGet, "/users", http.StatusForbidden},
		{"mod", http.MethodGet, "/users/stats", http.StatusForbidden},
		{"admin", http.MethodGet, "/users/stats", http.StatusOK},
		{"user", http.MethodGet, "/users/me", http.StatusOK},
		{"idle-admin", http.MethodGet, "/users/stats", http.StatusOK},
		{"idle-mod", http.MethodGet, "/users", http.StatusOK},
		{"idle-mod", http.MethodGet, "/users/stats", http.StatusForbidden},
		{"admin", http.MethodGet, "/roles/permissions", http.StatusOK},
		{"mod", http.MethodGet, "/roles/permissions", http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := h.do(t, tc.method, tc.path, tc.token, nil)
		assert.Equal(t, tc.want, rec.Code, "%s %s as %s", tc.method, tc.path, tc.token)
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.registerFn = func(in services.RegisterInput) (*services.AuthResult, error) {
		return &services.AuthResult{User: &models.User{Email: in.Email, Status: models.StatusInactive}, AccessToken: "tok"}, nil
	}

	rec := h.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "Aa1!aaaa", "firstName": "A", "lastName": "X", "phoneNumber": "+1234567890",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"accessToken":"tok"`)

	h.auth.registerFn = func(services.RegisterInput) (*services.AuthResult, error) {
		return nil, common.Conflict("user with this email already exists")
	}
	rec = h.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "Aa1!aaaa", "firstName": "A", "lastName": "X",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user with this email already exists", decodeEnvelope(t, rec).Message)
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	h := newHarness(t, nil)
	called := false
	h.auth.registerFn = func(services.RegisterInput) (*services.AuthResult, error) {
		called = true
		return nil, errors.New("unreachable")
	}

	rec := h.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "Aa1!" + strings.Repeat("é", 46), "firstName": "A", "lastName": "X",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	h.auth.registerFn = func(services.RegisterInput) (*services.AuthResult, error) {
		return nil, common.BadRequest("password must be at most 72 bytes long")
	}
	rec = h.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "Aa1!aaaa", "firstName": "A", "lastName": "X",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_ValidationMessages(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "not-an-email", "password": "weakpass", "firstName": "A", "lastName": "X", "phoneNumber": "0123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env struct {
		Message []string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Message, 3)
	joined := strings.Join(env.Message, "\n")
	assert.Contains(t, joined, "email must be a valid email address")
	assert.Contains(t, joined, "password must contain")
	assert.Contains(t, joined, "phoneNumber must be a valid phone number")

	rec = h.do(t, http.MethodPost, "/auth/register", "", `{"email":"a@x.com","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/auth/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is required", decodeEnvelope(t, rec).Message)
}

func TestForgotPassword_SameResponseForAnyEmail(t *testing.T) {
	h := newHarness(t, nil)

	a := h.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "known@example.com"})
	b := h.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, a.Code)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Body.String(), b.Body.String())
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/auth/logout", "user", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"jti-user"}, h.auth.loggedOut)
}

func TestValidateToken(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/auth/validate-token", "mod", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"user":{"id":"`+modID+`","email":"mod@example.com","roles":["MODERATOR"]},"message":"Token is valid"}`, rec.Body.String())
}

func TestUsers_PathAndErrors(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/users/not-a-uuid", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/users/"+modID, "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/users/"+userID, "mod", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodDelete, "/users/"+userID, "admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{userID}, h.users.deleted)

	rec = h.do(t, http.MethodGet, "/users?page=x", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	h := newHarness(t, nil)
	h.users.listErr = errors.New("db error: relation users does not exist")

	rec := h.do(t, http.MethodGet, "/users", "admin", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, internalErrorMessage, env.Message)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestLogsCarryRequestID(t *testing.T) {
	h := newHarness(t, nil)
	var buf bytes.Buffer
	h.srv.logger = logging.New(&buf, logging.Options{Format: "text"})
	h.users.listErr = errors.New("db down")

	rec := h.do(t, http.MethodGet, "/users", "admin", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var failed string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "request failed") {
			failed = line
		}
	}
	require.NotEmpty(t, failed)
	assert.Contains(t, failed, "request_id=")
}

func TestPanicsAreRecovered(t *testing.T) {
	h := newHarness(t, nil)

	// fakeRoles does not implement Stats, so the call panics
	rec := h.do(t, http.MethodGet, "/roles/stats", "admin", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, internalErrorMessage, decodeEnvelope(t, rec).Message)
}

func TestNotFoundRoute(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Cannot GET /nope", decodeEnvelope(t, rec).Message)
}

func TestRateLimitedLogin(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := newHarness(t, ratelimit.NewRedisRateLimiter(rdb, "test:", 0.001, 1))
	body := map[string]string{"email": "a@x.com", "password": "Secret1!"}

	rec := h.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other routes have their own bucket
	rec = h.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "bad"})

	rec := h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `useradmin_http_requests_total{method="POST",route="/auth/login",status="401"} 1`)
	assert.Contains(t, rec.Body.String(), `useradmin_auth_events_total{event="login",outcome="failure"} 1`)
}
