package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-retail-fulfillment/internal/cart"
)

type CartHandler struct {
	Svc *cart.Service
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/users/{userID}/cart", h.get)
	r.Post("/users/{userID}/cart/items", h.addItem)
	r.Put("/users/{userID}/cart/items/{productID}", h.updateItem)
	r.Delete("/users/{userID}/cart/items/{productID}", h.removeItem)
	r.Delete("/users/{userID}/cart", h.clear)
	r.Post("/users/{userID}/cart/validate", h.validate)
}

type cartLineResp struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartResp struct {
	ID     string         `json:"id"`
	UserID string         `json:"user_id"`
	Items  []cartLineResp `json:"items"`
}

func toCartResp(c cart.Cart) cartResp {
	out := cartResp{ID: c.ID, UserID: c.UserID, Items: []cartLineResp{}}
	for _, l := range c.Lines {
		out.Items = append(out.Items, cartLineResp{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	c, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "userID"), req.ProductID, req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	c, err := h.Svc.UpdateItemQuantity(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "productID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResp(c))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Clear(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) validate(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ValidateForCheckout(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
