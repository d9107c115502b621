package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atelier-crm/atelier-crm/internal/authz"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// VendorOption is a supplier row offered in the product form.
type VendorOption struct {
	ID   uuid.UUID
	Name string
}

// VendorDirectory supplies the selectable vendors for product forms.
type VendorDirectory interface {
	VendorOptions(ctx context.Context) ([]VendorOption, error)
}

// Handler serves the product catalog screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	vendors   VendorDirectory
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, vendors VendorDirectory, templates *view.Engine, csrf *shared.CSRFManager, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		vendors:   vendors,
		templates: templates,
		csrf:      csrf,
		guard:     guard,
	}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceProducts, authz.ActionRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceProducts, authz.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceProducts, authz.ActionUpdate))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceProducts, authz.ActionDelete))
		r.Post("/{id}/delete", h.remove)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	paging := shared.NewPagination(page, 50, 0)
	req := ListProductsRequest{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  paging.PerPage,
		Offset: paging.Offset(),
	}
	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		h.render(w, r, "pages/products/list.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}, "Search": req.Search}, http.StatusInternalServerError)
		return
	}
	paging = shared.NewPagination(page, paging.PerPage, total)
	h.render(w, r, "pages/products/list.html", map[string]any{"Products": list, "Search": req.Search, "Paging": paging}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get product", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/products/show.html", map[string]any{"Product": product}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/products/form.html", map[string]any{"Vendors": h.vendorOptions(r.Context()), "Errors": map[string]string{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	req := CreateProductRequest{
		Name: r.PostFormValue("name"),
		Tags: splitTags(r.PostFormValue("tags")),
	}
	req.Price, _ = strconv.ParseFloat(r.PostFormValue("price"), 64)
	req.Quantity, _ = strconv.Atoi(r.PostFormValue("quantity"))
	req.SKU = optionalString(r.PostFormValue("sku"))
	req.Description = optionalString(r.PostFormValue("description"))
	req.Category = optionalString(r.PostFormValue("category"))
	req.SalePrice = optionalFloat(r.PostFormValue("sale_price"))
	req.Cost = optionalFloat(r.PostFormValue("cost"))
	if vendorID, err := uuid.Parse(r.PostFormValue("vendor_id")); err == nil {
		req.VendorID = &vendorID
	}

	product, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		h.render(w, r, "pages/products/form.html", map[string]any{"Vendors": h.vendorOptions(r.Context()), "Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/products/"+product.ID.String(), "success", "Product created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get product", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/products/form.html", map[string]any{"Product": product, "Vendors": h.vendorOptions(r.Context()), "Errors": map[string]string{}}, http.StatusOK)
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
	req := UpdateProductRequest{
		Name: &name,
		SKU:  optionalString(r.PostFormValue("sku")),
		Tags: splitTags(r.PostFormValue("tags")),
	}
	if price, err := strconv.ParseFloat(r.PostFormValue("price"), 64); err == nil {
		req.Price = &price
	}
	if quantity, err := strconv.Atoi(r.PostFormValue("quantity")); err == nil {
		req.Quantity = &quantity
	}
	req.Description = optionalString(r.PostFormValue("description"))
	req.Category = optionalString(r.PostFormValue("category"))
	req.SalePrice = optionalFloat(r.PostFormValue("sale_price"))
	req.Cost = optionalFloat(r.PostFormValue("cost"))
	if vendorID, err := uuid.Parse(r.PostFormValue("vendor_id")); err == nil {
		req.VendorID = &vendorID
	}
	if err := h.service.Update(r.Context(), id, req); err != nil {
		h.logger.Error("update product", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/products/"+id.String()+"/edit", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/products/"+id.String(), "success", "Product updated")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete product", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/products", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/products", "success", "Product deleted")
}

func (h *Handler) vendorOptions(ctx context.Context) []VendorOption {
	options, err := h.vendors.VendorOptions(ctx)
	if err != nil {
		h.logger.Error("load vendor options", slog.Any("error", err))
	}
	return options
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Products", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

func optionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
