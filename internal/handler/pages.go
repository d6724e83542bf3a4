// Package handler contains the HTTP handlers: server-rendered pages, the
// GitHub sign-in flow and a small read-only JSON API.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules; domain errors from the services are mapped to
// status codes in response.go.
package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/flash"
	"github.com/sakif/project-showcase/internal/model"
	"github.com/sakif/project-showcase/internal/service"
	"github.com/sakif/project-showcase/internal/view"
)

// Flash texts shown after page actions.
const (
	MsgVoted        = "Thanks for the vote!"
	MsgDeleted      = "Project deleted"
	MsgDeleteFailed = "Couldn't delete project"
	MsgCreated      = "Project Created!"
	MsgCreateFailed = "Project failed to be created."
)

const (
	signInPath       = "/signin"
	myProjectsPath   = "/myprojects"
	projectPathStart = "/project/"
)

// PageHandler serves the HTML pages.
type PageHandler struct {
	projects    *service.ProjectService
	users       *service.AuthService
	views       *view.Renderer
	authEnabled bool
	logger      *slog.Logger
}

func NewPageHandler(
	projects *service.ProjectService,
	users *service.AuthService,
	views *view.Renderer,
	authEnabled bool,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		projects:    projects,
		users:       users,
		views:       views,
		authEnabled: authEnabled,
		logger:      logger,
	}
}

// HandleIndex lists or searches projects.
//
// HTTP: GET /?s=<query>&start=<offset>
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	query := r.URL.Query().Get("s")
	start := service.ParseStart(r.URL.Query().Get("start"))

	list, err := h.projects.GetProjects(r.Context(), query, start)
	if err != nil {
		h.renderError(w, r, user, err)
		return
	}

	data := view.Data{
		User:      user,
		List:      list,
		Query:     query,
		HasPrev:   start > 0,
		PrevStart: max(start-service.PageSize, 0),
		HasNext:   start+list.Count < list.Total,
		NextStart: start + service.PageSize,
	}
	if query != "" {
		data.Title = "Search"
	}
	h.render(w, r, http.StatusOK, view.PageAll, data)
}

// HandleAll keeps the old /all address working.
func (h *PageHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleProject shows one project.
//
// HTTP: GET /project/{id}
func (h *PageHandler) HandleProject(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)

	project, err := h.projects.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, user, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageProject, view.Data{
		Title:   project.Name,
		User:    user,
		Project: project,
		IsOwner: project.OwnedBy(user),
	})
}

// HandleVote casts the signed-in user's vote.
//
// HTTP: GET /project/{id}/vote
func (h *PageHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.projects.VoteForProject(r.Context(), id, user); err != nil {
		h.logger.Warn("vote failed",
			slog.String("key", id),
			slog.String("userKey", user.Key),
			slog.String("error", err.Error()),
		)
		h.renderError(w, r, user, err)
		return
	}

	flash.Set(w, flash.Success, MsgVoted)
	http.Redirect(w, r, projectPathStart+id, http.StatusSeeOther)
}

// HandleDelete removes one of the signed-in user's projects.
//
// HTTP: GET /project/{id}/delete
func (h *PageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.projects.DeleteProject(r.Context(), id, user); err != nil {
		h.logger.Warn("delete failed",
			slog.String("key", id),
			slog.String("userKey", user.Key),
			slog.String("error", err.Error()),
		)
		flash.Set(w, flash.Error, MsgDeleteFailed)
		http.Redirect(w, r, projectPathStart+id, http.StatusSeeOther)
		return
	}

	flash.Set(w, flash.Success, MsgDeleted)
	http.Redirect(w, r, myProjectsPath, http.StatusSeeOther)
}

// HandleMyProjects lists the signed-in user's projects.
func (h *PageHandler) HandleMyProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.projects.GetMyProjects(r.Context(), user)
	if err != nil {
		h.renderError(w, r, user, err)
		return
	}

	h.render(w, r, http.StatusOK, view.PageProjects, view.Data{
		Title: "My projects",
		User:  user,
		List:  list,
	})
}

// HandleCreateForm shows the submission form.
func (h *PageHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, view.PageCreate, view.Data{Title: "New project", User: user})
}

// HandleCreate stores a submitted project.
//
// HTTP: POST /myprojects/create
// Form: projectName, projectLink, projectImage, projectDesc
func (h *PageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		flash.Set(w, flash.Error, MsgCreateFailed)
		http.Redirect(w, r, myProjectsPath, http.StatusSeeOther)
		return
	}

	in := service.ProjectInput{
		Name:        r.PostFormValue("projectName"),
		Link:        r.PostFormValue("projectLink"),
		Image:       r.PostFormValue("projectImage"),
		Description: r.PostFormValue("projectDesc"),
	}
	if _, err := h.projects.CreateProject(r.Context(), in, user); err != nil {
		h.logger.Warn("create failed",
			slog.String("userKey", user.Key),
			slog.String("error", err.Error()),
		)
		flash.Set(w, flash.Error, MsgCreateFailed)
		http.Redirect(w, r, myProjectsPath, http.StatusSeeOther)
		return
	}

	flash.Set(w, flash.Success, MsgCreated)
	http.Redirect(w, r, myProjectsPath, http.StatusSeeOther)
}

// HandleSignIn shows the sign-in page.
func (h *PageHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageSignIn, view.Data{Title: "Sign in", User: h.currentUser(r)})
}

// HandleNotFound renders the error page for unknown paths.
func (h *PageHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, view.PageError, view.Data{
		User:   h.currentUser(r),
		Status: http.StatusNotFound,
	})
}

// currentUser loads the user the session points at, or nil when the request
// is anonymous or the user no longer exists.
func (h *PageHandler) currentUser(r *http.Request) *model.User {
	key, ok := auth.UserKeyFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := h.users.GetUser(r.Context(), key)
	if err != nil {
		h.logger.Debug("session user not loaded",
			slog.String("userKey", key),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}

// requireUser is the page-level half of auth.RequireSignIn: the token was
// valid but the user record must still load.
func (h *PageHandler) requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user := h.currentUser(r)
	if user == nil {
		flash.Set(w, flash.Error, auth.SignInRequired)
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return nil, false
	}
	return user, true
}

// render fills the fields every page shares and writes the page.
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data view.Data) {
	pending := flash.Pop(w, r)
	if data.Flash.Empty() {
		data.Flash = pending
	}
	data.AuthEnabled = h.authEnabled

	var buf bytes.Buffer
	if err := h.views.Render(&buf, page, data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, user *model.User, err error) {
	status, _ := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	h.render(w, r, status, view.PageError, view.Data{
		Title:  "Error",
		User:   user,
		Flash:  flash.Messages{Error: publicMessage(err)},
		Status: status,
	})
}
