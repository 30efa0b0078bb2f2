package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/prototypedave/hybridTool/internal/model"
)

// Request errors produced by the handlers themselves.
var (
	// ErrBadRequest is returned for a malformed request body or path.
	ErrBadRequest = errors.New("bad request")

	// ErrUnavailable is returned when an optional backend is not configured.
	ErrUnavailable = errors.New("service unavailable")

	// ErrUpstream is returned when a remote host the request depends on fails.
	ErrUpstream = errors.New("upstream failure")
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidTarget),
		errors.Is(err, model.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrJobActive):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, model.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}
