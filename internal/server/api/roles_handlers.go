package api

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/useradmin/internal/server/models"
)

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := s.roles.Create(r.Context(), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	page, limit, err := paging(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	active, err := queryBool(r, "isActive")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.roles.List(r.Context(), models.RoleListFilter{
		Page:     page,
		Limit:    limit,
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		IsActive: active,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.roles.AvailablePermissions())
}

func (s *Server) handleRoleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.roles.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := s.roles.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateRoleRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := s.roles.Update(r.Context(), id, req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleAssignPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req assignPermissionsRequest
	if err := s.validator.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := s.roles.AssignPermissions(r.Context(), id, req.Permissions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleToggleRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := s.roles.ToggleStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.roles.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInitializeDefaults(w http.ResponseWriter, r *http.Request) {
	created, err := s.roles.InitializeDefaults(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Default roles already present"
	if len(created) > 0 {
		msg = "Default roles initialized"
	}
	writeJSON(w, http.StatusCreated, initializeDefaultsResponse{Message: msg, Created: created})
}
