// Package api exposes the services over HTTP: a chi router built from a
// table of route descriptors, the bearer token guard, request validation
// and the error envelope.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/metrics"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/ratelimit"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
)

type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) (string, error)
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

type UserService interface {
	Create(ctx context.Context, in services.CreateUserInput) (*models.User, error)
	List(ctx context.Context, filter models.UserListFilter) (models.Page[models.User], error)
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, in services.ProfileInput) (*models.User, error)
	UpdateStatus(ctx context.Context, actor *models.User, id string, status models.UserStatus) (*models.User, error)
	AssignRoles(ctx context.Context, id string, roleIDs []string) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	SoftDelete(ctx context.Context, actor *models.User, id string) (*models.User, error)
	Stats(ctx context.Context) (*models.UserStats, error)
}

type RoleService interface {
	Create(ctx context.Context, in services.CreateRoleInput) (*models.Role, error)
	List(ctx context.Context, filter models.RoleListFilter) (models.Page[models.RoleWithUsage], error)
	Get(ctx context.Context, id string) (*models.Role, error)
	Update(ctx context.Context, id string, in services.UpdateRoleInput) (*models.Role, error)
	AssignPermissions(ctx context.Context, id string, permissions []string) (*models.Role, error)
	ToggleStatus(ctx context.Context, id string) (*models.Role, error)
	Delete(ctx context.Context, id string) error
	AvailablePermissions() []models.Permission
	Stats(ctx context.Context) (*models.RoleStats, error)
	InitializeDefaults(ctx context.Context) ([]string, error)
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options wires a Server. Limiter and Metrics are optional.
type Options struct {
	Address         string
	ShutdownTimeout time.Duration
	Auth            AuthService
	Users           UserService
	Roles           RoleService
	DB              Pinger
	Limiter         Limiter
	Metrics         *metrics.Metrics
	Logger          logging.Logger
}

type Server struct {
	address         string
	shutdownTimeout time.Duration
	auth            AuthService
	users           UserService
	roles           RoleService
	db              Pinger
	limiter         Limiter
	metrics         *metrics.Metrics
	validator       *Validator
	logger          logging.Logger
	handler         http.Handler
}

func NewHTTPServer(o Options) (*Server, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}

	s := &Server{
		address:         o.Address,
		shutdownTimeout: o.ShutdownTimeout,
		auth:            o.Auth,
		users:           o.Users,
		roles:           o.Roles,
		db:              o.DB,
		limiter:         o.Limiter,
		metrics:         o.Metrics,
		validator:       v,
		logger:          o.Logger.With("module", "http_server"),
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}
	s.handler = s.router()

	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-done
}
