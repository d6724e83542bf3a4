package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/project-showcase/internal/service"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler serves the read-only JSON API and the health check.
type APIHandler struct {
	projects *service.ProjectService
	store    Pinger
	logger   *slog.Logger
}

func NewAPIHandler(projects *service.ProjectService, store Pinger, logger *slog.Logger) *APIHandler {
	return &APIHandler{projects: projects, store: store, logger: logger}
}

// HandleListProjects lists or searches projects.
//
// HTTP: GET /api/projects?s=<query>&start=<offset>
func (h *APIHandler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	list, err := h.projects.GetProjects(r.Context(), q.Get("s"), service.ParseStart(q.Get("start")))
	if err != nil {
		h.logger.Error("listing projects", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetProject returns one project.
//
// HTTP: GET /api/projects/{id}
func (h *APIHandler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleHealth pings the store.
//
// HTTP: GET /healthz
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
