package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/prototypedave/hybridTool/internal/geo"
	"github.com/prototypedave/hybridTool/internal/model"
	"github.com/prototypedave/hybridTool/internal/queue"
	"github.com/prototypedave/hybridTool/internal/scan"
	"github.com/prototypedave/hybridTool/internal/session"
)

// targetParam decodes the escaped target URL in the path.
func targetParam(r *http.Request) (model.Target, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "target"))
	if err != nil {
		return model.Target{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return model.NewTarget(raw)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var subs []scan.Submission
	if err := render.DecodeJSON(io.LimitReader(r.Body, maxBodyBytes), &subs); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body must be a JSON array of {url, options}", ErrBadRequest))
		return
	}
	if len(subs) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no urls submitted", ErrBadRequest))
		return
	}

	accepted, err := s.submitter.SubmitBatch(r.Context(), subs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, accepted)
}

func (s *Server) handleLatest(kind model.ResultKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := targetParam(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		rec, err := s.store.Latest(r.Context(), kind, target.String())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		render.JSON(w, r, rec)
	}
}

// handleCoordinates returns [lat, lng] for every hop of the latest
// traceroute. Hops that cannot be located are [null, null].
func (s *Server) handleCoordinates(w http.ResponseWriter, r *http.Request) {
	if s.locator == nil {
		s.writeError(w, r, fmt.Errorf("%w: geolocation is not configured", ErrUnavailable))
		return
	}
	target, err := targetParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.Latest(r.Context(), model.ResultTraceroute, target.String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var trace model.TracerouteResult
	if err := rec.Decode(&trace); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.writeError(w, r, fmt.Errorf("%w: no traceroute stored for %s", model.ErrNotFound, target))
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: %w", model.ErrPersistence, err))
		return
	}

	located := geo.LocateHops(r.Context(), s.locator, trace.Hops, geo.DefaultConcurrency, s.logger)
	coords := make([][2]*float64, 0, len(located))
	for _, h := range located {
		coords = append(coords, [2]*float64{h.Latitude, h.Longitude})
	}
	render.JSON(w, r, coords)
}

func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	if s.inspector == nil {
		s.writeError(w, r, fmt.Errorf("%w: certificate inspection is not configured", ErrUnavailable))
		return
	}
	target, err := targetParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.inspector.Inspect(r.Context(), target)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", ErrUpstream, err))
		return
	}
	render.JSON(w, r, info)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// memoryStats is the host memory section of the health reply.
type memoryStats struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"usedPercent"`
}

type healthResponse struct {
	Status  string                  `json:"status"`
	Jobs    map[model.JobStatus]int `json:"jobs"`
	Queue   *queue.Stats            `json:"queue,omitempty"`
	Session *session.Stats          `json:"session,omitempty"`
	Memory  *memoryStats            `json:"memory,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountJobs(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, healthResponse{Status: "unavailable"})
		return
	}

	resp := healthResponse{Status: "ok", Jobs: counts}
	if s.queue != nil {
		st := s.queue.Stats()
		resp.Queue = &st
	}
	if s.sessions != nil {
		st := s.sessions.Stats()
		resp.Session = &st
	}
	if vm, err := s.memory(); err == nil {
		resp.Memory = &memoryStats{Total: vm.Total, Available: vm.Available, UsedPercent: vm.UsedPercent}
	} else {
		s.logger.Debug("memory stats unavailable", "error", err)
	}
	render.JSON(w, r, resp)
}
