package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/users"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	registrar      *users.Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	resetMail      func(email, token string)
}

// NewHandler constructs a Handler instance. resetMail may be nil when no
// mail transport is configured.
func NewHandler(logger *slog.Logger, service *Service, registrar *users.Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, resetMail func(email, token string)) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		registrar:      registrar,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		resetMail:      resetMail,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Get("/forgot-password", h.showForgotPassword)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Get("/reset-password", h.showResetPassword)
	r.Post("/reset-password", h.handleResetPassword)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form       loginForm
	Errors     map[string]string
	RedirectTo string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginPageData{RedirectTo: safeReturnPath(r.URL.Query().Get("redirectTo"))}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	redirectTo := safeReturnPath(r.PostFormValue("redirect_to"))

	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = "Please check this field."
			}
		}
	}

	if len(errs) == 0 {
		identity, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err != nil {
			errs["general"] = shared.UserSafeMessage(shared.ErrInvalidCredentials)
		} else {
			if sess != nil {
				sess.SetUser(identity.ID.String())
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
				expiresAt := time.Now().Add(h.sessionManager.TTL())
				if err := h.service.RegisterSession(r.Context(), sess.ID, identity.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
					h.logger.Warn("register session", slog.Any("error", err))
				}
			} else {
				h.logger.Error("session missing during login")
			}
			target := redirectTo
			if target == "" {
				target = "/dashboard"
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
	}

	h.renderLogin(w, r, loginPageData{Form: form, Errors: errs, RedirectTo: redirectTo}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

type registerForm struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	Role      string `validate:"required"`
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/auth/register.html", "Register", map[string]any{"Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Role:      r.PostFormValue("role"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = "Please check this field."
			}
		}
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/auth/register.html", "Register", map[string]any{"Form": form, "Errors": errs}, http.StatusBadRequest)
		return
	}

	profile, err := h.registrar.Register(r.Context(), users.RegisterInput{
		Email:     form.Email,
		Password:  form.Password,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		RoleName:  form.Role,
	})
	if err != nil {
		if errors.Is(err, users.ErrIdentityOrphaned) {
			h.logger.Error("registration left orphaned identity", slog.Any("error", err))
			errs["general"] = "Registration failed part-way; please contact an administrator."
		} else {
			h.logger.Error("register", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
		h.render(w, r, "pages/auth/register.html", "Register", map[string]any{"Form": form, "Errors": errs}, http.StatusBadRequest)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(profile.ID.String())
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Account created"})
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/auth/forgot_password.html", "Forgot password", map[string]any{}, http.StatusOK)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email != "" {
		token, err := h.service.StartPasswordReset(r.Context(), email)
		if err != nil {
			// Unknown accounts get the same response as known ones.
			if !errors.Is(err, shared.ErrNotFound) {
				h.logger.Error("start password reset", slog.Any("error", err))
			}
		} else if h.resetMail != nil {
			h.resetMail(email, token)
		}
	}
	h.render(w, r, "pages/auth/forgot_password.html", "Forgot password",
		map[string]any{"Submitted": true}, http.StatusOK)
}

func (h *Handler) showResetPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/auth/reset_password.html", "Reset password",
		map[string]any{"Token": r.URL.Query().Get("token")}, http.StatusOK)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	token := r.PostFormValue("token")
	password := r.PostFormValue("password")
	if token == "" || len(password) < 8 {
		h.render(w, r, "pages/auth/reset_password.html", "Reset password",
			map[string]any{"Token": token, "Errors": map[string]string{"general": "Password must be at least 8 characters."}}, http.StatusBadRequest)
		return
	}
	if err := h.service.ResetPassword(r.Context(), token, password); err != nil {
		h.logger.Warn("reset password", slog.Any("error", err))
		h.render(w, r, "pages/auth/reset_password.html", "Reset password",
			map[string]any{"Token": token, "Errors": map[string]string{"general": "This reset link is invalid or has expired."}}, http.StatusBadRequest)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Password updated, please sign in"})
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	h.render(w, r, "pages/auth/login.html", "Sign in", data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// safeReturnPath keeps login redirects on-site: only rooted paths survive.
func safeReturnPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return ""
	}
	if _, err := url.Parse(raw); err != nil {
		return ""
	}
	return raw
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}
