package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// RoleOption is a role row offered in the assignment form.
type RoleOption struct {
	ID   uuid.UUID
	Name string
}

// RoleLister supplies the selectable roles for user forms.
type RoleLister interface {
	RoleOptions(ctx context.Context) ([]RoleOption, error)
}

// Handler manages the staff administration screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleLister
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, roles RoleLister, templates *view.Engine, csrf *shared.CSRFManager, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roles,
		templates: templates,
		csrf:      csrf,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers user management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionRead))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionUpdate))
		r.Post("/{id}/role", h.assignRole)
		r.Post("/{id}/activate", h.activate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceUsers, authz.ActionDelete))
		r.Post("/{id}/deactivate", h.deactivate)
	})
}

type formErrors map[string]string

type createUserForm struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	Phone     string `validate:"omitempty,max=50"`
	RoleName  string `validate:"required"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		h.logger.Error("list profiles", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users/list.html", map[string]any{"Users": profiles}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	options, err := h.roles.RoleOptions(r.Context())
	if err != nil {
		h.logger.Error("load role options", slog.Any("error", err))
	}
	h.render(w, r, "pages/users/form.html", map[string]any{"Roles": options, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := createUserForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Phone:     r.PostFormValue("phone"),
		RoleName:  r.PostFormValue("role"),
	}
	errs := make(formErrors)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = "Please check this field."
			}
		}
	}
	if len(errs) > 0 {
		h.renderForm(w, r, form, errs, http.StatusBadRequest)
		return
	}

	input := RegisterInput{
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		RoleName:  form.RoleName,
	}
	if form.Phone != "" {
		input.Phone = &form.Phone
	}
	if _, err := h.service.Register(r.Context(), input); err != nil {
		if errors.Is(err, ErrIdentityOrphaned) {
			// Inconsistent external state, distinct from validation failures.
			h.logger.Error("registration left orphaned identity", slog.Any("error", err))
			errs["general"] = "Account creation failed part-way; an administrator has been notified."
		} else {
			h.logger.Error("register user", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
		h.renderForm(w, r, form, errs, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "User created")
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	roleID, err := uuid.Parse(r.PostFormValue("role_id"))
	if err != nil {
		h.redirectWithFlash(w, r, "/users", "error", "Select a valid role")
		return
	}
	if err := h.service.AssignRole(r.Context(), id, roleID); err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "Role updated")
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false, "User deactivated")
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true, "User activated")
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool, message string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var opErr error
	if active {
		opErr = h.service.Activate(r.Context(), id)
	} else {
		opErr = h.service.Deactivate(r.Context(), id)
	}
	if opErr != nil {
		h.logger.Error("set profile active", slog.Bool("active", active), slog.Any("error", opErr))
		h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(opErr))
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", message)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, form createUserForm, errs formErrors, status int) {
	options, err := h.roles.RoleOptions(r.Context())
	if err != nil {
		h.logger.Error("load role options", slog.Any("error", err))
	}
	h.render(w, r, "pages/users/form.html", map[string]any{"Form": form, "Roles": options, "Errors": errs}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Users", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
