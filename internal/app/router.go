package app

import (
	"io/fs"
	"log"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelier-crm/atelier-crm/internal/auth"
	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/catalog"
	"github.com/atelier-crm/atelier-crm/internal/clients"
	"github.com/atelier-crm/atelier-crm/internal/dashboard"
	"github.com/atelier-crm/atelier-crm/internal/observability"
	"github.com/atelier-crm/atelier-crm/internal/platform/httpx"
	"github.com/atelier-crm/atelier-crm/internal/roles"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/transactions"
	"github.com/atelier-crm/atelier-crm/internal/users"
	"github.com/atelier-crm/atelier-crm/internal/vendors"
	"github.com/atelier-crm/atelier-crm/internal/view"
	"github.com/atelier-crm/atelier-crm/jobs"
	"github.com/atelier-crm/atelier-crm/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Boundary       *authz.Boundary
	Guard          authz.Middleware

	AuthHandler         *auth.Handler
	DashboardHandler    *dashboard.Handler
	ClientsHandler      *clients.Handler
	CatalogHandler      *catalog.Handler
	VendorsHandler      *vendors.Handler
	TransactionsHandler *transactions.Handler
	UsersHandler        *users.Handler
	RolesHandler        *roles.Handler
	JobsHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Atelier defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Boundary:       params.Boundary,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	renderPage := func(w http.ResponseWriter, r *http.Request, page, title string) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:       title,
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
		}
		if err := params.Templates.Render(w, page, data); err != nil {
			params.Logger.Error("render page", slog.String("page", page), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}

	// Landing page for unauthenticated visitors
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, "pages/landing.html", "Atelier CRM")
	})

	r.Get("/unauthorized", func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, "pages/unauthorized.html", "Not allowed")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	r.Route("/clients", params.ClientsHandler.MountRoutes)
	r.Route("/products", params.CatalogHandler.MountRoutes)
	r.Route("/vendors", params.VendorsHandler.MountRoutes)
	r.Route("/transactions", params.TransactionsHandler.MountRoutes)
	// Staff administration is additionally behind a role-name allow-list:
	// only admins and the IT team ever see these screens, on top of the
	// per-operation users.* grants inside.
	adminPages := params.Guard.PageAccess(roles.NameAdmin, roles.NameITTeam)
	r.Route("/users", func(r chi.Router) {
		r.Use(adminPages)
		params.UsersHandler.MountRoutes(r)
	})
	r.Route("/settings", func(r chi.Router) {
		r.Use(adminPages)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			renderPage(w, r, "pages/settings/index.html", "Settings")
		})
		r.Route("/roles", params.RolesHandler.MountRoutes)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Static assets skip session and CSRF concerns entirely.
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// Some minimal container images ship without a mime.types database, which
// breaks Content-Type detection for the stylesheet.
func init() {
	if mime.TypeByExtension(".css") == "" {
		if err := mime.AddExtensionType(".css", "text/css; charset=utf-8"); err != nil {
			log.Printf("app: register MIME type for .css: %v", err)
		}
	}
}
