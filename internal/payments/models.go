package payments

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("payment not found")
	ErrDuplicatePayment  = errors.New("payment already exists for this order")
	ErrInvalidOrderState = errors.New("cannot create payment for cancelled or refunded order")
)

type Method string

const (
	MethodCreditCard     Method = "CREDIT_CARD"
	MethodDebitCard      Method = "DEBIT_CARD"
	MethodWallet         Method = "WALLET"
	MethodBankTransfer   Method = "BANK_TRANSFER"
	MethodCashOnDelivery Method = "CASH_ON_DELIVERY"
	MethodCrypto         Method = "CRYPTO"
)

var validMethods = map[Method]bool{
	MethodCreditCard: true, MethodDebitCard: true, MethodWallet: true,
	MethodBankTransfer: true, MethodCashOnDelivery: true, MethodCrypto: true,
}

func ValidMethod(m Method) bool { return validMethods[m] }

// Payment is 1:1 with an order. Amount is copied from the order total at
// creation and never changes afterwards.
type Payment struct {
	ID                string
	TransactionID     string
	OrderID           string
	Amount            decimal.Decimal
	Method            Method
	Status            Status
	Provider          string
	ProviderReference string
	FailureReason     string
	Currency          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
	RefundedAt        *time.Time
}

func NewTransactionID() string {
	return fmt.Sprintf("TXN-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}

func (p *Payment) MarkCompleted(providerRef string) {
	now := time.Now()
	p.Status = StatusCompleted
	p.ProviderReference = providerRef
	p.PaidAt = &now
}

func (p *Payment) MarkFailed(reason string) {
	p.Status = StatusFailed
	p.FailureReason = reason
}

func (p *Payment) MarkRefunded(reason string) {
	now := time.Now()
	p.Status = StatusRefunded
	p.RefundedAt = &now
	if reason != "" {
		p.FailureReason = "Refund reason: " + reason
	}
}
