package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apierr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, middleware.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}

// statusFor maps a failed intent to its HTTP status.
func statusFor(err error) int {
	var apiErr *apierr.APIError
	switch {
	case errors.Is(err, storefront.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// writeFailure writes err with the message a shopper should see.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := statusFor(err)
	var msg string
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
		msg = err.Error()
	default:
		msg = apierr.DisplayMessage(err, fallback)
	}
	writeError(w, r, status, msg)
}
