package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

const (
	msgCatalogFailed = "Error loading coins"
	msgOrdersFailed  = "Error loading orders"
	msgLogoutFailed  = "Error logging out"
)

type Handler struct {
	session *storefront.Session
	api     *clients.Client
	logger  *zap.Logger
}

func NewHandler(s *storefront.Session, api *clients.Client, logger *zap.Logger) *Handler {
	return &Handler{session: s, api: api, logger: logging.OrNop(logger)}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront-go",
	})
}

// Upstream reports whether the storefront API answers.
func (h *Handler) Upstream(w http.ResponseWriter, r *http.Request) {
	if h.api == nil {
		writeError(w, r, http.StatusNotFound, "no upstream configured")
		return
	}
	res := clients.CheckHealth(r.Context(), h.api, "/coins")
	status := http.StatusOK
	if !res.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// ListCatalog applies the filter given in the query, if any, and returns the
// matching items. Only one of metal, country or year may be set.
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		c   = catalog.All()
		set int
		err error
	)
	for _, f := range []catalog.Field{catalog.FieldMetal, catalog.FieldCountry, catalog.FieldYear} {
		v := q.Get(string(f))
		if v == "" {
			continue
		}
		set++
		if c, err = catalog.ParseCriterion(string(f), v); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if set > 1 {
		writeError(w, r, http.StatusBadRequest, "filter on one of metal, country or year")
		return
	}

	v, _ := h.session.Dispatch(r.Context(), storefront.FilterBy{Criterion: c})
	writeJSON(w, http.StatusOK, toCatalog(v))
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	v, err := h.session.Dispatch(r.Context(), storefront.Refresh{})
	if err != nil {
		writeFailure(w, r, err, msgCatalogFailed)
		return
	}
	writeJSON(w, http.StatusOK, toCatalog(v))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.session.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Coin not found")
			return
		}
		writeFailure(w, r, err, msgCatalogFailed)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCart(h.session.View()))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.cartIntent(w, r, storefront.AddItem{ID: chi.URLParam(r, "id")})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.cartIntent(w, r, storefront.RemoveItem{ID: chi.URLParam(r, "id")})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cartIntent(w, r, storefront.ClearCart{})
}

func (h *Handler) cartIntent(w http.ResponseWriter, r *http.Request, intent storefront.Intent) {
	v, err := h.session.Dispatch(r.Context(), intent)
	if err != nil {
		writeFailure(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Applied: true, Cart: toCart(v)})
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Checkout
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) OpenCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutIntent(w, r, storefront.OpenCheckout{})
}

func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return
	}
	h.checkoutIntent(w, r, storefront.SubmitCheckout{Name: req.Name, Email: req.Email})
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.checkoutIntent(w, r, storefront.ConfirmPayment{})
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	h.checkoutIntent(w, r, storefront.CancelPayment{})
}

func (h *Handler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	h.checkoutIntent(w, r, storefront.CloseCheckout{})
}

// checkoutIntent answers with the session after the intent. An ignored
// intent is 200 with applied=false; a failed call is 502 carrying the
// message the session recorded.
func (h *Handler) checkoutIntent(w http.ResponseWriter, r *http.Request, intent storefront.Intent) {
	v, err := h.session.Dispatch(r.Context(), intent)
	snap := v.Checkout
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, actionResponse{Applied: true, Cart: toCart(v), Checkout: &snap})
	case storefront.IsNoop(err):
		writeJSON(w, http.StatusOK, actionResponse{Applied: false, Message: err.Error(), Cart: toCart(v), Checkout: &snap})
	case errors.Is(err, storefront.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusBadGateway, actionResponse{Applied: true, Message: snap.Message, Cart: toCart(v), Checkout: &snap})
	}
}

// Me re-checks the session cookie. A failed check answers as anonymous.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	v, err := h.session.Dispatch(r.Context(), storefront.CheckAuth{})
	if err != nil {
		h.logger.Warn("auth check failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, meResponse{User: v.User})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Dispatch(r.Context(), storefront.Logout{}); err != nil {
		writeFailure(w, r, err, msgLogoutFailed)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.session.Orders(r.Context())
	if err != nil {
		writeFailure(w, r, err, msgOrdersFailed)
		return
	}
	if orders == nil {
		orders = []checkout.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
