package sharedlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/yumovie/backend/internal/httpx"
	"github.com/yumovie/backend/internal/middleware"
	"github.com/yumovie/backend/internal/models"
)

// Handler holds shared watchlist HTTP handlers.
type Handler struct {
	svc *Service
	log logrus.FieldLogger
}

func NewHandler(svc *Service, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the handlers; callers wrap them in RequireAuth.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/members", h.AddMember)
	r.Post("/{id}/movies", h.AddMovie)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSharedWatchlistRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	list, err := h.svc.Create(r.Context(), user.ID, req.Name)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, list)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	lists, err := h.svc.ListForUser(r.Context(), user.ID, viewOptions(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lists)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	list, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), user.ID, viewOptions(r))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req models.AddMemberRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	list, err := h.svc.AddMember(r.Context(), chi.URLParam(r, "id"), user.ID, req.Email)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) AddMovie(w http.ResponseWriter, r *http.Request) {
	var req models.AddMovieRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	user := middleware.CurrentUser(r.Context())
	movies, err := h.svc.AddMovie(r.Context(), chi.URLParam(r, "id"), user.ID, req)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, movies)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Watchlist deleted")
}

// viewOptions reads ?include=email.
func viewOptions(r *http.Request) ViewOptions {
	return ViewOptions{IncludeEmail: r.URL.Query().Get("include") == "email"}
}
