package api

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Create(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, err := paging(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := s.users.List(r.Context(), models.UserListFilter{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(q.Get("search")),
		Status: models.UserStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Role:   q.Get("role"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.users.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())

	var req updateProfileRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), c.user.ID, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Update(r.Context(), id, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.UpdateStatus(r.Context(), c.user, id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleAssignRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req assignRolesRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.AssignRoles(r.Context(), id, req.RoleIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.Delete(r.Context(), c.user, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSoftDeleteUser(w http.ResponseWriter, r *http.Request) {
	c, _ := callerFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.SoftDelete(r.Context(), c.user, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
