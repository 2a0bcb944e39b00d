package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

const internalErrorMessage = "Internal server error"

// errorResponse is the body of every failed request.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Error      string `json:"error"`
	Message    any    `json:"message"`
}

var errorStatuses = []struct {
	kind   error
	status int
}{
	{common.ErrorBadRequest, http.StatusBadRequest},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrorConflict, http.StatusConflict},
}

// classify maps err to an HTTP status and the sentinel kind it matched.
func classify(err error) (int, error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.kind) {
			return e.status, e.kind
		}
	}
	return http.StatusInternalServerError, common.ErrorInternal
}

// writeError renders err as an error envelope. Errors of unknown kind are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)

	var message any
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		message = verr.Messages
	case status == http.StatusInternalServerError:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		message = internalErrorMessage
	default:
		msg := common.Message(err)
		if msg == "" {
			msg = kind.Error()
		}
		message = msg
	}

	writeEnvelope(w, r, status, message)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, message any) {
	writeJSON(w, status, errorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Path:       r.URL.Path,
		Method:     r.Method,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
