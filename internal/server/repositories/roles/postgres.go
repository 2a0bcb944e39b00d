package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	query :=
		`INSERT INTO roles (name, description, permissions, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		role.Name, role.Description, EncodePermissions(role.Permissions), role.IsActive,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return role, nil
}

func (r *PostgresRepository) Update(ctx context.Context, role *models.Role) error {
	query :=
		`UPDATE roles
		 SET name = $2, description = $3, permissions = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		role.ID, role.Name, role.Description, EncodePermissions(role.Permissions), role.IsActive)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.RequireAffected(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM roles r WHERE r.id = $1`, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	return r.getOne(ctx, `SELECT `+Columns+` FROM roles r WHERE r.name = $1`, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Role, error) {
	role, err := ScanRole(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return role, nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.RoleListFilter) ([]models.RoleWithUsage, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+dbx.EscapeLike(f.Search)+"%")
		where = append(where, fmt.Sprintf("(r.name ILIKE $%[1]d OR r.description ILIKE $%[1]d)", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("r.is_active = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles r`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	page, limit := models.NormalizePaging(f.Page, f.Limit)
	args = append(args, limit, models.Offset(page, limit))
	query := `SELECT ` + Columns + `,
		(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id) AS user_count
		FROM roles r` + clause +
		fmt.Sprintf(" ORDER BY r.name LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.RoleWithUsage
	for rows.Next() {
		var count int
		role, err := ScanRole(rows, &count)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, models.RoleWithUsage{Role: *role, UserCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return out, total, nil
}

func (r *PostgresRepository) CountUsers(ctx context.Context, roleID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, roleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*models.RoleStats, error) {
	stats := &models.RoleStats{}
	query :=
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_active),
		        COUNT(*) FILTER (WHERE NOT is_active)
		 FROM roles`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Active, &stats.Inactive); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	usage, err := UsageCounts(ctx, r.db)
	if err != nil {
		return nil, err
	}
	stats.Usage = usage
	return stats, nil
}

// UsageCounts returns the number of accounts per role, roles without
// accounts included.
func UsageCounts(ctx context.Context, db dbx.DBTX) ([]models.RoleUserCount, error) {
	query :=
		`SELECT r.name, COUNT(ur.user_id)
		 FROM roles r
		 LEFT JOIN user_roles ur ON ur.role_id = r.id
		 GROUP BY r.name
		 ORDER BY r.name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.RoleUserCount{}
	for rows.Next() {
		var c models.RoleUserCount
		if err := rows.Scan(&c.RoleName, &c.UserCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
