package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-retail-fulfillment/internal/cart"
	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/payments"
)

func TestWriteErrStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{catalog.ErrNotFound, http.StatusNotFound},
		{catalog.ErrUserNotFound, http.StatusNotFound},
		{orders.ErrNotFound, http.StatusNotFound},
		{payments.ErrNotFound, http.StatusNotFound},
		{cart.ErrItemNotFound, http.StatusNotFound},

		{cart.ErrInvalidQuantity, http.StatusBadRequest},
		{inventory.ErrNegativeQuantity, http.StatusBadRequest},

		{cart.ErrEmptyCart, http.StatusConflict},
		{catalog.ErrProductUnavailable, http.StatusConflict},
		{orders.ErrInvalidTransition, http.StatusConflict},
		{payments.ErrInvalidTransition, http.StatusConflict},
		{payments.ErrInvalidOrderState, http.StatusConflict},
		{payments.ErrDuplicatePayment, http.StatusConflict},

		// wrapped sentinels still map
		{fmt.Errorf("update: %w", orders.ErrInvalidTransition), http.StatusConflict},

		{errors.New("pg down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeErr(rec, c.err)
		if rec.Code != c.want {
			t.Errorf("writeErr(%v) = %d, want %d", c.err, rec.Code, c.want)
		}
	}
}

func TestWriteErrInsufficientStockBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, &inventory.InsufficientStockError{Product: "Widget", Available: 2, Requested: 5})

	if rec.Code != http.StatusConflict {
		t.Fatalf("code = %d, want 409", rec.Code)
	}
	var body struct {
		Product   string `json:"product"`
		Available int    `json:"available"`
		Requested int    `json:"requested"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Product != "Widget" || body.Available != 2 || body.Requested != 5 {
		t.Fatalf("body = %+v", body)
	}
}

func TestWriteErrHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal error" {
		t.Fatalf("error = %q, internals must not leak", body["error"])
	}
}
