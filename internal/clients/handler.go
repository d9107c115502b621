package clients

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// Handler serves the client management screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		guard:     guard,
	}
}

// MountRoutes registers client routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceClients, authz.ActionRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceClients, authz.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceClients, authz.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceClients, authz.ActionDelete))
		r.Post("/{id}/delete", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	paging := shared.NewPagination(page, 50, 0)
	req := ListClientsRequest{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  paging.PerPage,
		Offset: paging.Offset(),
	}
	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		h.render(w, r, "pages/clients/list.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}, "Search": req.Search}, http.StatusInternalServerError)
		return
	}
	paging = shared.NewPagination(page, paging.PerPage, total)
	h.render(w, r, "pages/clients/list.html", map[string]any{"Clients": list, "Search": req.Search, "Paging": paging}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get client", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/clients/show.html", map[string]any{"Client": client}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/clients/form.html", map[string]any{"Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	req := CreateClientRequest{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Tags:      splitTags(r.PostFormValue("tags")),
	}
	if phone := strings.TrimSpace(r.PostFormValue("phone")); phone != "" {
		req.Phone = &phone
	}
	if notes := strings.TrimSpace(r.PostFormValue("notes")); notes != "" {
		req.Notes = &notes
	}
	if birthdate, ok := parseDate(r.PostFormValue("birthdate")); ok {
		req.Birthdate = &birthdate
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if principal, err := uuid.Parse(sess.User()); err == nil {
			req.CreatedBy = &principal
		}
	}

	client, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create client", slog.Any("error", err))
		h.render(w, r, "pages/clients/form.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/clients/"+client.ID.String(), "success", "Client created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get client", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/clients/form.html", map[string]any{"Client": client, "Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	firstName := r.PostFormValue("first_name")
	lastName := r.PostFormValue("last_name")
	email := r.PostFormValue("email")
	phone := strings.TrimSpace(r.PostFormValue("phone"))
	notes := strings.TrimSpace(r.PostFormValue("notes"))
	req := UpdateClientRequest{
		FirstName: &firstName,
		LastName:  &lastName,
		Email:     &email,
		Phone:     &phone,
		Notes:     &notes,
		Tags:      splitTags(r.PostFormValue("tags")),
	}
	if birthdate, ok := parseDate(r.PostFormValue("birthdate")); ok {
		req.Birthdate = &birthdate
	}
	if err := h.service.Update(r.Context(), id, req); err != nil {
		h.logger.Error("update client", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/clients/"+id.String()+"/edit", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/clients/"+id.String(), "success", "Client updated")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete client", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/clients", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/clients", "success", "Client deleted")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Clients", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
