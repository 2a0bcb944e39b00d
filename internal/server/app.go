// Package server wires the useradmin components together and runs them:
// it opens the database, applies migrations, connects the optional Redis,
// builds the services and serves the HTTP API until a termination signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/api"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/metrics"
	"github.com/dmitrijs2005/useradmin/internal/server/notify"
	"github.com/dmitrijs2005/useradmin/internal/server/ratelimit"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
)

const redisPingTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rdb    redis.UniversalClient
	server *api.Server
}

func NewApp(c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(os.Stdout, logging.Options{
		Backend: c.LogBackend,
		Format:  c.LogFormat,
		Level:   c.LogLevel,
	})

	return &App{config: c, logger: logger}, nil
}

// init opens external resources and builds the HTTP server.
func (app *App) init(ctx context.Context) error {
	db, err := repomanager.OpenDB(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm := repomanager.NewPostgresRepositoryManager()
	if app.config.MigrateOnStart {
		if err := rm.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		app.logger.Info(ctx, "Migrations applied")
	}

	var (
		revocations auth.RevocationList = auth.NewMemoryRevocationList()
		limiter     api.Limiter
	)
	if app.config.RedisAddr != "" {
		rdb, err := app.connectRedis(ctx)
		if err != nil {
			return err
		}
		app.rdb = rdb
		revocations = auth.NewRedisRevocationList(rdb, "")
		limiter = ratelimit.NewRedisRateLimiter(rdb, "", app.config.RateLimitRate, app.config.RateLimitBurst)
	} else {
		app.logger.Warn(ctx, "Redis not configured: token revocation is process-local and rate limiting is off")
	}

	hasher := auth.NewPasswordHasher(app.config.BcryptCost)
	notifier := app.newNotifier()
	m := metrics.New()

	as := services.NewAuthService(db, rm, hasher, notifier, revocations, app.logger, app.config)
	us := services.NewUserService(db, rm, hasher, notifier, app.logger)
	rs := services.NewRoleService(db, rm, app.logger)

	srv, err := api.NewHTTPServer(api.Options{
		Address:         app.config.HTTPAddr,
		ShutdownTimeout: app.config.ShutdownTimeout,
		Auth:            as,
		Users:           us,
		Roles:           rs,
		DB:              db,
		Limiter:         limiter,
		Metrics:         m,
		Logger:          app.logger,
	})
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	app.server = srv

	return nil
}

func (app *App) connectRedis(ctx context.Context) (redis.UniversalClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return rdb, nil
}

func (app *App) newNotifier() services.Notifier {
	templates := notify.NewTemplates(app.config.AppURL)
	if app.config.SMTPHost == "" {
		return notify.NewLogNotifier(app.logger, templates)
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     app.config.SMTPHost,
		Port:     app.config.SMTPPort,
		Username: app.config.SMTPUsername,
		Password: app.config.SMTPPassword,
		From:     app.config.SMTPFrom,
	}, templates)
}

func (app *App) close(ctx context.Context) {
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error(ctx, "closing redis", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts the application and blocks until it is stopped by a signal or
// a fatal server error.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	defer app.close(ctx)
	if err := app.init(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
	return nil
}
