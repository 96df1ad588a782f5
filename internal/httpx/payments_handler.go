package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-fulfillment/internal/payments"
)

type PaymentsHandler struct {
	Svc *payments.Service
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payments", h.create)
	r.Get("/payments/{id}", h.get)
	r.Post("/payments/{id}/process", h.process)
	r.Post("/payments/{id}/refund", h.refund)
	r.Post("/payments/{id}/cancel", h.cancel)
	r.Get("/orders/{id}/payment", h.getByOrder)
}

type paymentResp struct {
	ID                string          `json:"id"`
	TransactionID     string          `json:"transaction_id"`
	OrderID           string          `json:"order_id"`
	Amount            decimal.Decimal `json:"amount"`
	Method            payments.Method `json:"method"`
	Status            payments.Status `json:"status"`
	Provider          string          `json:"provider,omitempty"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	Currency          string          `json:"currency"`
	CreatedAt         time.Time       `json:"created_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
}

func toPaymentResp(p *payments.Payment) paymentResp {
	return paymentResp{
		ID: p.ID, TransactionID: p.TransactionID, OrderID: p.OrderID,
		Amount: p.Amount, Method: p.Method, Status: p.Status,
		Provider: p.Provider, ProviderReference: p.ProviderReference,
		FailureReason: p.FailureReason, Currency: p.Currency,
		CreatedAt: p.CreatedAt, PaidAt: p.PaidAt, RefundedAt: p.RefundedAt,
	}
}

func (h *PaymentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID  string          `json:"order_id"`
		Method   payments.Method `json:"method"`
		Provider string          `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if !payments.ValidMethod(req.Method) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment method"})
		return
	}
	p, err := h.Svc.Create(r.Context(), payments.CreateRequest{
		OrderID: req.OrderID, Method: req.Method, Provider: req.Provider,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResp(p))
}

func (h *PaymentsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *PaymentsHandler) getByOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.GetByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *PaymentsHandler) process(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProviderReference string `json:"provider_reference"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	p, err := h.Svc.Process(r.Context(), chi.URLParam(r, "id"), req.ProviderReference)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *PaymentsHandler) refund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	p, err := h.Svc.Refund(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *PaymentsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResp(p))
}
