package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// Handler manages the role and permission settings screens. Role editing is
// a users-resource concern: whoever may manage staff may shape their roles.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guard: guard}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionRead))
		r.Get("/", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionCreate))
		r.Get("/new", h.showForm)
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionDelete))
		r.Post("/{id}/delete", h.deleteRole)
	})
}

type formErrors map[string]string

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		h.render(w, r, "pages/settings/roles.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/settings/roles.html", map[string]any{
		"Roles":     list,
		"Resources": authz.AllResources(),
		"Actions":   authz.AllActions(),
	}, http.StatusOK)
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/settings/role_form.html", map[string]any{
		"Resources": authz.AllResources(),
		"Actions":   authz.AllActions(),
		"Errors":    formErrors{},
	}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	description := r.PostFormValue("description")
	if _, err := h.service.CreateRole(r.Context(), name, description, matrixFromForm(r)); err != nil {
		h.logger.Error("create role", slog.Any("error", err))
		h.render(w, r, "pages/settings/role_form.html", map[string]any{
			"Resources": authz.AllResources(),
			"Actions":   authz.AllActions(),
			"Errors":    formErrors{"general": shared.UserSafeMessage(err)},
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/settings/roles", "success", "Role created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.logger.Error("get role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/settings/roles", "error", shared.UserSafeMessage(err))
		return
	}
	h.render(w, r, "pages/settings/role_form.html", map[string]any{
		"Role":      role,
		"Resources": authz.AllResources(),
		"Actions":   authz.AllActions(),
		"Errors":    formErrors{},
	}, http.StatusOK)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("name")
	description := r.PostFormValue("description")
	if err := h.service.UpdateRole(r.Context(), id, name, description, matrixFromForm(r)); err != nil {
		h.logger.Error("update role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/settings/roles", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/settings/roles", "success", "Role updated")
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.logger.Error("delete role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/settings/roles", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/settings/roles", "success", "Role deleted")
}

// matrixFromForm reads the checkbox grid. Unchecked boxes are simply absent
// from the form, so anything not present decodes to a deny.
func matrixFromForm(r *http.Request) authz.Matrix {
	matrix := make(authz.Matrix, 5)
	for _, resource := range authz.AllResources() {
		set := authz.ActionSet{
			Read:   r.PostFormValue("perm_"+string(resource)+"_read") == "on",
			Create: r.PostFormValue("perm_"+string(resource)+"_create") == "on",
			Update: r.PostFormValue("perm_"+string(resource)+"_update") == "on",
			Delete: r.PostFormValue("perm_"+string(resource)+"_delete") == "on",
		}
		matrix[resource] = set
	}
	return matrix
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Roles", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
