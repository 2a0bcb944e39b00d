package api

import (
	"net/http"

	"github.com/dmitrijs2005/useradmin/internal/common"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Register(r.Context(), req.input())
	if err != nil {
		s.metrics.AuthEvent("register", "failure")
		s.writeError(w, r, err)
		return
	}
	s.metrics.AuthEvent("register", "success")

	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.AuthEvent("login", "failure")
		s.writeError(w, r, err)
		return
	}
	s.metrics.AuthEvent("login", "success")

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	msg, err := s.auth.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	msg, err := s.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.AuthEvent("forgot_password", "success")

	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		s.metrics.AuthEvent("reset_password", "failure")
		s.writeError(w, r, err)
		return
	}
	s.metrics.AuthEvent("reset_password", "success")

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successfully"})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())

	var req changePasswordRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.auth.ChangePassword(r.Context(), c.user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())

	type identity struct {
		ID    string   `json:"id"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	}
	writeJSON(w, http.StatusOK, struct {
		Valid   bool     `json:"valid"`
		User    identity `json:"user"`
		Message string   `json:"message"`
	}{
		Valid:   true,
		User:    identity{ID: c.user.ID, Email: c.user.Email, Roles: models.RoleNames(c.user)},
		Message: "Token is valid",
	})
}

// handleProfile serves both /auth/profile and /users/me.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user": profileResponse{User: c.user, Permissions: models.UserPermissions(c.user)},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, ok := callerFrom(r.Context())
	if !ok || c.claims == nil {
		s.writeError(w, r, common.Unauthorized("authentication required"))
		return
	}

	if err := s.auth.Logout(r.Context(), c.claims); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}
