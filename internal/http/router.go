package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

type Deps struct {
	Logger           *zap.Logger
	Session          *storefront.Session
	CORSAllowOrigins []string

	// API is probed by /health/upstream; nil skips the probe.
	API *clients.Client
}

func NewRouter(d Deps) http.Handler {
	h := NewHandler(d.Session, d.API, d.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.CORS(d.CORSAllowOrigins))
	r.Use(middleware.Logging(h.logger))
	r.Use(middleware.Recover(h.logger))

	r.Get("/health", h.Health)
	r.Get("/health/upstream", h.Upstream)

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", h.ListCatalog)
		r.Post("/refresh", h.RefreshCatalog)
		r.Get("/{id}", h.GetItem)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items/{id}", h.AddItem)
		r.Delete("/items/{id}", h.RemoveItem)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/", h.GetCheckout)
		r.Post("/", h.SubmitCheckout)
		r.Post("/open", h.OpenCheckout)
		r.Post("/confirm", h.ConfirmPayment)
		r.Post("/cancel", h.CancelPayment)
		r.Post("/close", h.CloseCheckout)
	})

	r.Get("/me", h.Me)
	r.Post("/logout", h.Logout)
	r.Get("/orders", h.ListOrders)

	return r
}
