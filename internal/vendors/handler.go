package vendors

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// Handler serves the vendor management screens.
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

// MountRoutes registers vendor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceVendors, authz.ActionRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceVendors, authz.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceVendors, authz.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceVendors, authz.ActionDelete))
		r.Post("/{id}/delete", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), true)
	if err != nil {
		h.logger.Error("list vendors", slog.Any("error", err))
		h.render(w, r, "pages/vendors/list.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/vendors/list.html", map[string]any{"Vendors": list}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	vendor, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get vendor", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/vendors/show.html", map[string]any{"Vendor": vendor}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/vendors/form.html", map[string]any{"Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	req := CreateVendorRequest{
		Name:         r.PostFormValue("name"),
		ContactName:  optionalString(r.PostFormValue("contact_name")),
		Email:        optionalString(r.PostFormValue("email")),
		Phone:        optionalString(r.PostFormValue("phone")),
		Website:      optionalString(r.PostFormValue("website")),
		PaymentTerms: optionalString(r.PostFormValue("payment_terms")),
		Notes:        optionalString(r.PostFormValue("notes")),
	}
	vendor, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create vendor", slog.Any("error", err))
		h.render(w, r, "pages/vendors/form.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/vendors/"+vendor.ID.String(), "success", "Vendor created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	vendor, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get vendor", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/vendors/form.html", map[string]any{"Vendor": vendor, "Errors": map[string]string{}}, http.StatusOK)
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
	name := r.PostFormValue("name")
	req := UpdateVendorRequest{
		Name:         &name,
		ContactName:  optionalString(r.PostFormValue("contact_name")),
		Email:        optionalString(r.PostFormValue("email")),
		Phone:        optionalString(r.PostFormValue("phone")),
		Website:      optionalString(r.PostFormValue("website")),
		PaymentTerms: optionalString(r.PostFormValue("payment_terms")),
		Notes:        optionalString(r.PostFormValue("notes")),
	}
	if err := h.service.Update(r.Context(), id, req); err != nil {
		h.logger.Error("update vendor", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/vendors/"+id.String()+"/edit", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/vendors/"+id.String(), "success", "Vendor updated")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete vendor", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/vendors", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/vendors", "success", "Vendor deleted")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Vendors", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
