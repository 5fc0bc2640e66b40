package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crateport/crateport/internal/common"
)

// errorEnvelope is the wire shape of every failure.
type errorEnvelope struct {
	Errors []errorDetail `json:"errors"`
}

type errorDetail struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy to an HTTP status and the standard
// envelope. Input errors stay at info level; backend errors log at error
// level with the correlation id.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error(r.Context(), "request failed",
			"request_id", requestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error())
	}
	s.writeJSON(w, status, errorEnvelope{Errors: []errorDetail{{Detail: err.Error()}}})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrMalformedUpload),
		errors.Is(err, common.ErrBadMetadata),
		errors.Is(err, common.ErrBadSemver),
		errors.Is(err, common.ErrNameCollision),
		errors.Is(err, common.ErrVersionNotGreater),
		errors.Is(err, common.ErrMissingDependency),
		errors.Is(err, common.ErrUnknownAuthor),
		errors.Is(err, common.ErrEmptyOwnerSet),
		errors.Is(err, common.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrServerBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrConflictRetry):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
