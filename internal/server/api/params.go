package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

// pathID returns the {id} path parameter, which must be a UUID.
func pathID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", common.BadRequest("validation failed (uuid is expected)")
	}
	return id.String(), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, common.BadRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, common.BadRequest("%s must be true or false", name)
	}
	return &b, nil
}

func paging(r *http.Request) (int, int, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}
