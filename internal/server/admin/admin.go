package admin

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/buildinfo"
	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/flagx"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

type Migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	MigrationStatus(ctx context.Context, db *sql.DB) error
}

type RoleSeeder interface {
	InitializeDefaults(ctx context.Context) ([]string, error)
}

type AdminCreator interface {
	CreateAdmin(ctx context.Context, email, firstName, lastName, password string) (*models.User, error)
}

type StructValidator interface {
	Struct(s any) error
}

// Tool dispatches operator commands against an opened database.
type Tool struct {
	db        *sql.DB
	migrator  Migrator
	roles     RoleSeeder
	users     AdminCreator
	validator StructValidator
	in        *bufio.Reader
	out       io.Writer
}

type Options struct {
	DB        *sql.DB
	Migrator  Migrator
	Roles     RoleSeeder
	Users     AdminCreator
	Validator StructValidator
	In        io.Reader
	Out       io.Writer
}

func NewTool(o Options) *Tool {
	return &Tool{
		db:        o.DB,
		migrator:  o.Migrator,
		roles:     o.Roles,
		users:     o.Users,
		validator: o.Validator,
		in:        bufio.NewReader(o.In),
		out:       o.Out,
	}
}

// NeedsDatabase reports whether cmd has to connect to PostgreSQL.
func NeedsDatabase(cmd string) bool {
	switch cmd {
	case "migrate", "status", "seed-roles", "create-admin":
		return true
	}
	return false
}

func (t *Tool) Usage() {
	fmt.Fprintln(t.out, "Usage: admin <command> [flags]")
	fmt.Fprintln(t.out, "Commands: migrate, status, seed-roles, create-admin, version, help")
}

// Run executes args[0] with the remaining arguments.
func (t *Tool) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		t.Usage()
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}

	switch cmd := args[0]; cmd {
	case "migrate":
		if err := t.migrator.RunMigrations(ctx, t.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(t.out, "Migrations applied")
		return nil
	case "status":
		return t.migrator.MigrationStatus(ctx, t.db)
	case "seed-roles":
		return t.seedRoles(ctx)
	case "create-admin":
		return t.createAdmin(ctx, args[1:])
	case "version":
		buildinfo.PrintBuildData(t.out)
		return nil
	case "help", "-h", "--help":
		t.Usage()
		return nil
	default:
		t.Usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (t *Tool) seedRoles(ctx context.Context) error {
	created, err := t.roles.InitializeDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if len(created) == 0 {
		fmt.Fprintln(t.out, "Default roles already present")
		return nil
	}
	fmt.Fprintf(t.out, "Created roles: %s\n", strings.Join(created, ", "))
	return nil
}

type adminInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=50,password,pwbytes"`
}

func (t *Tool) createAdmin(ctx context.Context, args []string) error {
	var in adminInput

	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(t.out)
	fs.StringVar(&in.Email, "email", "", "administrator email")
	fs.StringVar(&in.FirstName, "first-name", "", "administrator first name")
	fs.StringVar(&in.LastName, "last-name", "", "administrator last name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-first-name", "-last-name"})); err != nil {
		return err
	}

	prompts := []struct {
		dst    *string
		prompt string
	}{
		{&in.Email, "Enter email"},
		{&in.FirstName, "Enter first name"},
		{&in.LastName, "Enter last name"},
	}
	for _, p := range prompts {
		if *p.dst != "" {
			continue
		}
		v, err := getSimpleText(t.in, p.prompt, t.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	pw, err := t.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	in.Password = string(pw)

	if err := t.validator.Struct(in); err != nil {
		return err
	}

	u, err := t.users.CreateAdmin(ctx, in.Email, in.FirstName, in.LastName, in.Password)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(t.out, "Administrator %s created (id %s)\n", u.Email, u.ID)
	return nil
}

func (t *Tool) readNewPassword() ([]byte, error) {
	pw, err := getPassword(t.out, "Enter password")
	if err != nil {
		return nil, err
	}
	confirm, err := getPassword(t.out, "Confirm password")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}
