package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-fulfillment/internal/fulfillment"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/redisx"
)

type OrdersHandler struct {
	Svc   *fulfillment.Service
	Redis *redis.Client
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders/checkout", h.checkout)
	r.Post("/orders", h.create)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Get("/users/{userID}/orders", h.list)
}

type lineResp struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
}

type orderResp struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	Status          orders.Status   `json:"status"`
	Lines           []lineResp      `json:"lines"`
	ShippingAddress string          `json:"shipping_address"`
	BillingAddress  string          `json:"billing_address"`
	Notes           string          `json:"notes,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	ShippingAmount  decimal.Decimal `json:"shipping_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toOrderResp(o *orders.Order) orderResp {
	out := orderResp{
		ID: o.ID, OrderNumber: o.OrderNumber, UserID: o.UserID, Status: o.Status,
		Lines:           []lineResp{},
		ShippingAddress: o.ShippingAddress, BillingAddress: o.BillingAddress,
		Notes: o.Notes, TrackingNumber: o.TrackingNumber,
		Subtotal: o.Subtotal, TaxAmount: o.TaxAmount, ShippingAmount: o.ShippingAmount,
		DiscountAmount: o.DiscountAmount, TotalAmount: o.TotalAmount,
		CreatedAt: o.CreatedAt,
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, lineResp{
			ProductID: l.ProductID, ProductName: l.ProductName, SKU: l.SKU,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Discount: l.Discount,
		})
	}
	return out
}

type createOrderReq struct {
	UserID          string          `json:"user_id"`
	ShippingAddress string          `json:"shipping_address"`
	BillingAddress  string          `json:"billing_address"`
	Notes           string          `json:"notes"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	ShippingAmount  decimal.Decimal `json:"shipping_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Items           []struct {
		ProductID string          `json:"product_id"`
		Quantity  int             `json:"quantity"`
		Discount  decimal.Decimal `json:"discount"`
	} `json:"items"`
}

func (req createOrderReq) toServiceReq() fulfillment.CreateOrderRequest {
	out := fulfillment.CreateOrderRequest{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
		TaxAmount:       req.TaxAmount,
		ShippingAmount:  req.ShippingAmount,
		DiscountAmount:  req.DiscountAmount,
	}
	for _, it := range req.Items {
		out.Items = append(out.Items, fulfillment.LineRequest{
			ProductID: it.ProductID, Quantity: it.Quantity, Discount: it.Discount,
		})
	}
	return out
}

// checkout converts the user's cart into an order. An Idempotency-Key header
// makes retries return the first order instead of creating another one; the
// key is best-effort (Redis), the DB stays the source of truth.
func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.ShippingAddress == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx := r.Context()

	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, req.UserID, k)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			if o, err := h.Svc.GetOrder(ctx, orderID); err == nil {
				writeJSON(w, http.StatusOK, toOrderResp(o))
				return
			}
		}
	}

	o, err := h.Svc.CreateOrderFromCart(ctx, req.toServiceReq())
	if err != nil {
		writeErr(w, err)
		return
	}
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	}
	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.ShippingAddress == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	o, err := h.Svc.CreateOrder(r.Context(), req.toServiceReq())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

// getStatus serves from the Redis cache first and falls back to the DB.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx := r.Context()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Svc.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	body := fmt.Sprintf(`{"status":%q}`, o.Status)
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status         orders.Status `json:"status"`
		TrackingNumber string        `json:"tracking_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	o, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.TrackingNumber)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.ListOrders(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResp(o))
	}
	writeJSON(w, http.StatusOK, out)
}
