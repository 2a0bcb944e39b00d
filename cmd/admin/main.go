package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/admin"
	"github.com/dmitrijs2005/useradmin/internal/server/api"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/notify"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := run(ctx, cfg, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}

	logger := logging.New(os.Stderr, logging.Options{
		Backend: cfg.LogBackend,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	})

	var db *sql.DB
	if admin.NeedsDatabase(cmd) {
		var err error
		db, err = repomanager.OpenDB(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		defer db.Close()
	}

	v, err := api.NewValidator()
	if err != nil {
		return err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	notifier := notify.NewLogNotifier(logger, notify.NewTemplates(cfg.AppURL))

	tool := admin.NewTool(admin.Options{
		DB:        db,
		Migrator:  rm,
		Roles:     services.NewRoleService(db, rm, logger),
		Users:     services.NewUserService(db, rm, hasher, notifier, logger),
		Validator: v,
		In:        os.Stdin,
		Out:       os.Stdout,
	})

	return tool.Run(ctx, args)
}
