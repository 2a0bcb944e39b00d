package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/roles"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/users"
)

// -------- test fakes --------

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	users     map[string]models.User
	userRoles map[string][]string
	roles     map[string]models.Role
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]models.User{},
		userRoles: map[string][]string{},
		roles:     map[string]models.Role{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// seedDefaultRoles stores ADMIN, MODERATOR and USER and returns them by name.
func (s *fakeStore) seedDefaultRoles() map[string]models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]models.Role{}
	for _, d := range models.DefaultRoles() {
		r := models.Role{ID: s.nextID("role"), Name: d.Name, Description: d.Description, Permissions: d.Permissions, IsActive: true}
		s.roles[r.ID] = r
		out[r.Name] = r
	}
	return out
}

// addUser stores u holding the given roles and returns the stored copy.
func (s *fakeStore) addUser(u models.User, rs ...models.Role) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.nextID("user")
	}
	ids := []string{}
	for _, r := range rs {
		ids = append(ids, r.ID)
	}
	u.Roles = nil
	s.users[u.ID] = u
	s.userRoles[u.ID] = ids
	u.Roles = rs
	return &u
}

func (s *fakeStore) user(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *fakeStore) withRoles(u models.User) *models.User {
	u.Roles = []models.Role{}
	for _, id := range s.userRoles[u.ID] {
		u.Roles = append(u.Roles, s.roles[id])
	}
	return &u
}

var errUnique = &pgconn.PgError{Code: "23505"}

type fakeUsersRepo struct {
	users.Repository
	s *fakeStore
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, e := range f.s.users {
		if e.Email == u.Email {
			return nil, fmt.Errorf("db error: %w", errUnique)
		}
	}
	u.ID = f.s.nextID("user")
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	stored.Roles = nil
	f.s.users[u.ID] = stored
	return u, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	for id, e := range f.s.users {
		if id != u.ID && e.Email == u.Email {
			return fmt.Errorf("db error: %w", errUnique)
		}
	}
	stored := *u
	stored.Roles = nil
	f.s.users[u.ID] = stored
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.users, id)
	delete(f.s.userRoles, id)
	return nil
}

func (f *fakeUsersRepo) find(match func(models.User) bool) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if match(u) {
			return f.s.withRoles(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == email })
}

func (f *fakeUsersRepo) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return f.find(func(u models.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == token
	})
}

func (f *fakeUsersRepo) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return f.find(func(u models.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == token
	})
}

func (f *fakeUsersRepo) SetRoles(ctx context.Context, userID string, roleIDs []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.userRoles[userID] = append([]string(nil), roleIDs...)
	return nil
}

func (f *fakeUsersRepo) List(ctx context.Context, filter models.UserListFilter) ([]models.User, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []models.User{}
	for _, u := range f.s.users {
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		out = append(out, *f.s.withRoles(u))
	}
	return out, len(out), nil
}

func (f *fakeUsersRepo) Stats(ctx context.Context) (*models.UserStats, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	st := &models.UserStats{Total: len(f.s.users), ByRole: []models.RoleUserCount{}}
	for _, u := range f.s.users {
		if u.Status == models.StatusActive {
			st.Active++
		}
	}
	return st, nil
}

type fakeRolesRepo struct {
	roles.Repository
	s *fakeStore
}

func (f *fakeRolesRepo) Create(ctx context.Context, r *models.Role) (*models.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, e := range f.s.roles {
		if e.Name == r.Name {
			return nil, fmt.Errorf("db error: %w", errUnique)
		}
	}
	r.ID = f.s.nextID("role")
	f.s.roles[r.ID] = *r
	return r, nil
}

func (f *fakeRolesRepo) Update(ctx context.Context, r *models.Role) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.roles[r.ID]; !ok {
		return common.ErrorNotFound
	}
	f.s.roles[r.ID] = *r
	return nil
}

func (f *fakeRolesRepo) Delete(ctx context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.roles[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.roles, id)
	return nil
}

func (f *fakeRolesRepo) GetByID(ctx context.Context, id string) (*models.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if r, ok := f.s.roles[id]; ok {
		return &r, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRolesRepo) GetByName(ctx context.Context, name string) (*models.Role, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.roles {
		if r.Name == name {
			return &r, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRolesRepo) countUsers(roleID string) int {
	n := 0
	for _, ids := range f.s.userRoles {
		for _, id := range ids {
			if id == roleID {
				n++
			}
		}
	}
	return n
}

func (f *fakeRolesRepo) List(ctx context.Context, filter models.RoleListFilter) ([]models.RoleWithUsage, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := []models.RoleWithUsage{}
	for _, r := range f.s.roles {
		if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, models.RoleWithUsage{Role: r, UserCount: f.countUsers(r.ID)})
	}
	return out, len(out), nil
}

func (f *fakeRolesRepo) CountUsers(ctx context.Context, roleID string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.countUsers(roleID), nil
}

func (f *fakeRolesRepo) Stats(ctx context.Context) (*models.RoleStats, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	st := &models.RoleStats{Total: len(f.s.roles), Usage: []models.RoleUserCount{}}
	for _, r := range f.s.roles {
		if r.IsActive {
			st.Active++
		} else {
			st.Inactive++
		}
	}
	return st, nil
}

type fakeRepoManager struct {
	s *fakeStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository        { return &fakeUsersRepo{s: m.s} }
func (m *fakeRepoManager) Roles(db dbx.DBTX) roles.Repository        { return &fakeRolesRepo{s: m.s} }

// fakeHasher "hashes" by prefixing, so tests stay fast and deterministic.
type fakeHasher struct {
	dummyCalls int
	err        error
}

func (h *fakeHasher) Hash(ctx context.Context, p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + p, nil
}

func (h *fakeHasher) Verify(ctx context.Context, p, hash string) (bool, error) {
	if h.err != nil {
		return false, h.err
	}
	return hash == "hashed:"+p, nil
}

func (h *fakeHasher) VerifyDummy(ctx context.Context, p string) { h.dummyCalls++ }

type sentMail struct {
	kind, to, secret string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendVerification(ctx context.Context, to, name, token string) error {
	n.sent = append(n.sent, sentMail{"verification", to, token})
	return n.err
}

func (n *fakeNotifier) SendPasswordReset(ctx context.Context, to, name, token string, expires time.Time) error {
	n.sent = append(n.sent, sentMail{"reset", to, token})
	return n.err
}

func (n *fakeNotifier) SendTemporaryPassword(ctx context.Context, to, name, password string) error {
	n.sent = append(n.sent, sentMail{"temporary", to, password})
	return n.err
}

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func strPtr(s string) *string { return &s }
