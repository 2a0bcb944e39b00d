package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/roles"
)

const userColumns = `u.id, u.email, u.first_name, u.last_name, u.password_hash, u.status,
	u.phone_number, u.avatar, u.email_verified, u.email_verification_token,
	u.password_reset_token, u.password_reset_expires, u.last_login_at,
	u.created_at, u.updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, first_name, last_name, password_hash, status,
		                    phone_number, avatar, email_verified, email_verification_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.FirstName, user.LastName, user.PasswordHash, string(user.Status),
		user.PhoneNumber, user.Avatar, user.EmailVerified, user.EmailVerificationToken,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET email = $2, first_name = $3, last_name = $4, password_hash = $5, status = $6,
		     phone_number = $7, avatar = $8, email_verified = $9, email_verification_token = $10,
		     password_reset_token = $11, password_reset_expires = $12, last_login_at = $13,
		     updated_at = NOW()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash, string(user.Status),
		user.PhoneNumber, user.Avatar, user.EmailVerified, user.EmailVerificationToken,
		user.PasswordResetToken, user.PasswordResetExpires, user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "u.id", id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "u.email", email)
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "u.email_verification_token", token)
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, "u.password_reset_token", token)
}

func (r *PostgresRepository) getOne(ctx context.Context, column string, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE ` + column + ` = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.Roles, err = r.loadRoles(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) loadRoles(ctx context.Context, userID string) ([]models.Role, error) {
	query := `SELECT ` + roles.Columns + `
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Role{}
	for rows.Next() {
		role, err := roles.ScanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, roleID := range roleIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, roleID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.UserListFilter) ([]models.User, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+dbx.EscapeLike(f.Search)+"%")
		where = append(where, fmt.Sprintf("(u.first_name ILIKE $%[1]d OR u.last_name ILIKE $%[1]d OR u.email ILIKE $%[1]d)", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("u.status = $%d", len(args)))
	}
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id AND r.name = $%d)",
			len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	page, limit := models.NormalizePaging(f.Page, f.Limit)
	args = append(args, limit, models.Offset(page, limit))
	query := `SELECT ` + userColumns + ` FROM users u` + clause +
		fmt.Sprintf(" ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	rows.Close()

	for i := range out {
		if out[i].Roles, err = r.loadRoles(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{}
	query :=
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'ACTIVE'),
		        COUNT(*) FILTER (WHERE status = 'INACTIVE'),
		        COUNT(*) FILTER (WHERE status = 'SUSPENDED'),
		        COUNT(*) FILTER (WHERE email_verified)
		 FROM users`
	err := r.db.QueryRowContext(ctx, query).
		Scan(&stats.Total, &stats.Active, &stats.Inactive, &stats.Suspended, &stats.Verified)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if stats.ByRole, err = roles.UsageCounts(ctx, r.db); err != nil {
		return nil, err
	}
	return stats, nil
}

func scanUser(s roles.Scanner) (*models.User, error) {
	var (
		u                            models.User
		status                       string
		phone, avatar, verify, reset sql.NullString
		resetExpires, lastLogin      sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &status,
		&phone, &avatar, &u.EmailVerified, &verify,
		&reset, &resetExpires, &lastLogin,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Status = models.UserStatus(status)
	u.PhoneNumber = stringPtr(phone)
	u.Avatar = stringPtr(avatar)
	u.EmailVerificationToken = stringPtr(verify)
	u.PasswordResetToken = stringPtr(reset)
	if resetExpires.Valid {
		t := resetExpires.Time
		u.PasswordResetExpires = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	u.Roles = []models.Role{}
	return &u, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
