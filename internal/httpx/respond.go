package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-retail-fulfillment/internal/cart"
	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/payments"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     stockErr.Error(),
			"product":   stockErr.Product,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrUserNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, payments.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrNegativeQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, catalog.ErrProductUnavailable),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, payments.ErrInvalidTransition),
		errors.Is(err, payments.ErrInvalidOrderState),
		errors.Is(err, payments.ErrDuplicatePayment):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
