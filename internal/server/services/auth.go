package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/dbx"
	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/auth"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
)

const (
	msgRegistered      = "User registered successfully. Please check your email to verify your account."
	msgLoggedIn        = "Login successful"
	msgResetRequested  = "If an account with that email exists, a password reset link has been sent."
	msgEmailVerified   = "Email verified successfully"
	msgAlreadyVerified = "Email already verified"
	msgInvalidLogin    = "invalid credentials"
	msgInvalidReset    = "invalid or expired reset token"
	msgInactiveCaller  = "user not found or inactive"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	Message     string       `json:"message"`
}

// RegisterInput carries the fields of a self-registration.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber *string
}

// AuthService implements registration, login, password management, email
// verification and bearer token validation.
type AuthService struct {
	db                 *sql.DB
	repomanager        repomanager.RepositoryManager
	hasher             Hasher
	notifier           Notifier
	revocations        auth.RevocationList
	logger             logging.Logger
	jwtSecret          []byte
	tokenValidity      time.Duration
	resetTokenValidity time.Duration
	now                func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, h Hasher, n Notifier,
	r auth.RevocationList, l logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                 db,
		repomanager:        m,
		hasher:             h,
		notifier:           n,
		revocations:        r,
		logger:             l.With("module", "auth_service"),
		jwtSecret:          []byte(cfg.SecretKey),
		tokenValidity:      cfg.AccessTokenValidityDuration,
		resetTokenValidity: cfg.ResetTokenValidityDuration,
		now:                time.Now,
	}
}

// Register creates an INACTIVE, unverified account holding the USER role and
// returns it with a bearer token. The token only becomes usable once the
// email is verified, because authentication requires an ACTIVE account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := models.NormalizeEmail(in.Email)

	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err == nil {
		return nil, common.Conflict("user with this email already exists")
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	role, err := defaultRole(ctx, s.repomanager.Roles(s.db))
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}

	user := &models.User{
		Email:                  email,
		FirstName:              in.FirstName,
		LastName:               in.LastName,
		PasswordHash:           hash,
		Status:                 models.StatusInactive,
		PhoneNumber:            in.PhoneNumber,
		EmailVerified:          false,
		EmailVerificationToken: &token,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if _, err := repo.Create(ctx, user); err != nil {
			return err
		}
		return repo.SetRoles(ctx, user.ID, []string{role.ID})
	})
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.Conflict("user with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.Roles = []models.Role{*role}

	accessToken, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendVerification(ctx, user.Email, user.FirstName, token); err != nil {
		s.logger.Error(ctx, "sending verification email failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user, AccessToken: accessToken, Message: msgRegistered}, nil
}

// Login checks credentials and issues a bearer token. Unknown email, wrong
// password and a non-ACTIVE account all produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(ctx, password)
			return nil, common.Unauthorized(msgInvalidLogin)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok || user.Status != models.StatusActive {
		return nil, common.Unauthorized(msgInvalidLogin)
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	accessToken, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, AccessToken: accessToken, Message: msgLoggedIn}, nil
}

// ChangePassword replaces the password of userID after checking the current
// one. Reusing the current password is rejected.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Unauthorized("user not found")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, currentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return common.Unauthorized("current password is incorrect")
	}

	same, err := s.hasher.Verify(ctx, newPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if same {
		return common.BadRequest("new password must be different from the current password")
	}

	if user.PasswordHash, err = s.hasher.Hash(ctx, newPassword); err != nil {
		return err
	}
	if err := repo.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ForgotPassword starts a password reset. The returned message is the same
// whether or not the email belongs to an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return msgResetRequested, nil
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("reset token: %w", err)
	}
	expires := s.now().Add(s.resetTokenValidity)
	user.PasswordResetToken = &token
	user.PasswordResetExpires = &expires

	if err := repo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.FirstName, token, expires); err != nil {
		s.logger.Error(ctx, "sending password reset email failed", "user_id", user.ID, "error", err)
	}

	return msgResetRequested, nil
}

// ResetPassword sets a new password for the holder of a valid reset token.
// The token is single use and expires strictly at its expiry instant.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return common.BadRequest(msgInvalidReset)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.BadRequest(msgInvalidReset)
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if user.PasswordResetExpires == nil || !s.now().Before(*user.PasswordResetExpires) {
		return common.BadRequest(msgInvalidReset)
	}

	if user.PasswordHash, err = s.hasher.Hash(ctx, newPassword); err != nil {
		return err
	}
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil

	if err := repo.Update(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// VerifyEmail confirms the email behind token and activates the account.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.BadRequest("verification token is required")
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.BadRequest("invalid verification token")
		}
		return "", fmt.Errorf("lookup verification token: %w", err)
	}

	if user.EmailVerified {
		return msgAlreadyVerified, nil
	}

	user.EmailVerified = true
	user.Status = models.StatusActive
	user.EmailVerificationToken = nil

	if err := repo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("verify email: %w", err)
	}
	return msgEmailVerified, nil
}

// ValidateCaller re-reads the account named by claims. The account must still
// exist and be ACTIVE.
func (s *AuthService) ValidateCaller(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgInactiveCaller)
		}
		return nil, fmt.Errorf("lookup caller: %w", err)
	}
	if user.Status != models.StatusActive {
		return nil, common.Unauthorized(msgInactiveCaller)
	}
	return user, nil
}

// Authenticate validates a bearer token end to end: signature and expiry,
// revocation, then ValidateCaller.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, common.Unauthorized("token has been revoked")
	}

	user, err := s.ValidateCaller(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims.ID == "" {
		return common.BadRequest("token cannot be revoked")
	}
	return s.revocations.Revoke(ctx, claims.ID, claims.Expiry())
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	token, err := auth.GenerateToken(auth.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  models.RoleNames(user),
	}, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
