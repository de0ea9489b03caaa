package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hearthlabs/hearth-core/internal/monitor"
)

// Firing list query limits.
const (
	defaultFiringLimit = 50
	maxFiringLimit     = 500
)

// registerMonitorRequest is the payload for POST /monitors.
type registerMonitorRequest struct {
	Name   string          `json:"name"`
	Script *monitor.Script `json:"script"`
}

// handleListMonitors returns every registered monitor, sorted by name.
func (s *Server) handleListMonitors(w http.ResponseWriter, _ *http.Request) {
	infos := s.manager.List()
	writeJSON(w, http.StatusOK, map[string]any{"monitors": infos, "count": len(infos)})
}

// handleRegisterMonitor registers a new monitor from a script document.
// The script is validated structurally here; device binding happens on start.
func (s *Server) handleRegisterMonitor(w http.ResponseWriter, r *http.Request) {
	var req registerMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !monitor.ValidName(req.Name) {
		writeBadRequest(w, "name must be a lowercase slug of at most 64 characters")
		return
	}
	if req.Script == nil {
		writeBadRequest(w, "script is required")
		return
	}

	if err := s.manager.Register(req.Name, req.Script); err != nil {
		switch {
		case errors.Is(err, monitor.ErrMonitorExists):
			writeConflict(w, "monitor already registered: "+req.Name)
		case errors.Is(err, monitor.ErrInvalidScript):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		default:
			writeInternalError(w, "failed to register monitor")
		}
		return
	}

	info, err := s.manager.Get(req.Name)
	if err != nil {
		writeInternalError(w, "failed to load registered monitor")
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handleGetMonitor returns one monitor's status.
func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.manager.Get(name)
	if err != nil {
		writeNotFound(w, "monitor not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleDeregisterMonitor removes a monitor, stopping it first if running.
func (s *Server) handleDeregisterMonitor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.manager.Deregister(name); err != nil {
		writeNotFound(w, "monitor not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deregistered": name})
}

// handleStartMonitor compiles and starts a monitor. Compile failures report
// the binder's diagnosis; a monitor that fails to compile stays registered
// and idle.
func (s *Server) handleStartMonitor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.manager.Start(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, monitor.ErrMonitorNotFound):
			writeNotFound(w, "monitor not found: "+name)
		case errors.Is(err, monitor.ErrAlreadyRunning):
			writeConflict(w, "monitor already running: "+name)
		case errors.Is(err, monitor.ErrCompile):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		default:
			writeInternalError(w, "failed to start monitor")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"started": name})
}

// handleStopMonitor stops a running monitor.
func (s *Server) handleStopMonitor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.manager.Stop(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, monitor.ErrMonitorNotFound):
			writeNotFound(w, "monitor not found: "+name)
		case errors.Is(err, monitor.ErrNotRunning):
			writeConflict(w, "monitor not running: "+name)
		default:
			writeInternalError(w, "failed to stop monitor")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stopped": name})
}

// handleListFirings returns the recorded firings for one monitor, most
// recent first.
//
// Query parameters:
//   - limit: maximum number of firings to return (default 50, max 500)
func (s *Server) handleListFirings(w http.ResponseWriter, r *http.Request) {
	if s.firings == nil {
		writeNotFound(w, "firing history is not enabled")
		return
	}

	name := chi.URLParam(r, "name")
	if _, err := s.manager.Get(name); err != nil {
		writeNotFound(w, "monitor not found: "+name)
		return
	}

	limit := defaultFiringLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		if parsed > maxFiringLimit {
			parsed = maxFiringLimit
		}
		limit = parsed
	}

	firings, err := s.firings.ListFirings(r.Context(), name, limit)
	if err != nil {
		writeInternalError(w, "failed to list firings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"firings": firings, "count": len(firings)})
}
