package transactions

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
	"github.com/atelier-crm/atelier-crm/internal/catalog"
	"github.com/atelier-crm/atelier-crm/internal/clients"
	"github.com/atelier-crm/atelier-crm/internal/shared"
	"github.com/atelier-crm/atelier-crm/internal/view"
)

// ClientLister supplies the selectable clients for the transaction form.
type ClientLister interface {
	List(ctx context.Context, req clients.ListClientsRequest) ([]clients.Client, int, error)
}

// ProductLister supplies the selectable products for the transaction form.
type ProductLister interface {
	List(ctx context.Context, req catalog.ListProductsRequest) ([]catalog.Product, int, error)
}

// Handler serves the transaction screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	clients   ClientLister
	products  ProductLister
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, clientList ClientLister, productList ProductLister, templates *view.Engine, csrf *shared.CSRFManager, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		clients:   clientList,
		products:  productList,
		templates: templates,
		csrf:      csrf,
		guard:     guard,
	}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceTransactions, authz.ActionRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceTransactions, authz.ActionCreate))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ResourceTransactions, authz.ActionUpdate))
		r.Post("/{id}/status", h.setStatus)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListTransactionsRequest{Limit: 100}
	if t := Type(r.URL.Query().Get("type")); t.Valid() {
		req.Type = t
	}
	if s := Status(r.URL.Query().Get("status")); s.Valid() {
		req.Status = s
	}
	list, _, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		h.render(w, r, "pages/transactions/list.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/transactions/list.html", map[string]any{"Transactions": list}, http.StatusOK)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	tx, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("get transaction", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/transactions/show.html", map[string]any{"Transaction": tx}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, map[string]string{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	req := CreateTransactionRequest{Type: Type(r.PostFormValue("type"))}
	if clientID, err := uuid.Parse(r.PostFormValue("client_id")); err == nil {
		req.ClientID = &clientID
	}
	if method := strings.TrimSpace(r.PostFormValue("payment_method")); method != "" {
		req.PaymentMethod = &method
	}
	if notes := strings.TrimSpace(r.PostFormValue("notes")); notes != "" {
		req.Notes = &notes
	}
	if tax, err := strconv.ParseFloat(r.PostFormValue("tax"), 64); err == nil && tax > 0 {
		req.Tax = &tax
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if principal, err := uuid.Parse(sess.User()); err == nil {
			req.CreatedBy = &principal
		}
	}

	productIDs := r.PostForm["item_product"]
	quantities := r.PostForm["item_quantity"]
	for i, raw := range productIDs {
		productID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		quantity := 0
		if i < len(quantities) {
			quantity, _ = strconv.Atoi(quantities[i])
		}
		req.Lines = append(req.Lines, LineInput{ProductID: productID, Quantity: quantity})
	}

	tx, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create transaction", slog.Any("error", err))
		message := shared.UserSafeMessage(err)
		if errors.Is(err, ErrNoItems) {
			message = "Add at least one item with a quantity."
		}
		h.renderForm(w, r, map[string]string{"general": message}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/transactions/"+tx.ID.String(), "success", "Transaction recorded")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	status := Status(r.PostFormValue("status"))
	if err := h.service.SetStatus(r.Context(), id, status); err != nil {
		h.logger.Error("set transaction status", slog.Any("error", err))
		message := shared.UserSafeMessage(err)
		if errors.Is(err, ErrInvalidTransition) {
			message = "This transaction can no longer change status."
		}
		h.redirectWithFlash(w, r, "/transactions/"+id.String(), "error", message)
		return
	}
	h.redirectWithFlash(w, r, "/transactions/"+id.String(), "success", "Status updated")
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, errs map[string]string, status int) {
	clientList, _, err := h.clients.List(r.Context(), clients.ListClientsRequest{Limit: 500})
	if err != nil {
		h.logger.Error("load clients for form", slog.Any("error", err))
	}
	productList, _, err := h.products.List(r.Context(), catalog.ListProductsRequest{Limit: 500})
	if err != nil {
		h.logger.Error("load products for form", slog.Any("error", err))
	}
	data := map[string]any{
		"Clients":   clientList,
		"Products":  productList,
		"ItemSlots": []int{0, 1, 2, 3, 4},
		"Errors":    errs,
	}
	h.render(w, r, "pages/transactions/form.html", data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Transactions", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
