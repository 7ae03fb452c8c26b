package entity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
)

// AsaasWebhook is the body of a gateway notification
type AsaasWebhook struct {
	ID          string               `json:"id"`
	Event       string               `json:"event" validate:"required"`
	DateCreated string               `json:"dateCreated"`
	Payment     *AsaasWebhookPayment `json:"payment" validate:"required"`
}

// AsaasWebhookPayment is the payment object embedded in a notification
type AsaasWebhookPayment struct {
	ID                string           `json:"id" validate:"required"`
	Customer          string           `json:"customer"`
	Status            string           `json:"status"`
	Value             decimal.Decimal  `json:"value"`
	NetValue          *decimal.Decimal `json:"netValue"`
	BillingType       string           `json:"billingType"`
	ExternalReference string           `json:"externalReference"`
	PaymentDate       string           `json:"paymentDate"`
	ClientPaymentDate string           `json:"clientPaymentDate"`
	PixTransactionID  string           `json:"pixTransactionId"`
	PixTransaction    string           `json:"pixTransaction"`
	PixQrCodeID       string           `json:"pixQrCodeId"`
}

// TransferRequestID decodes a TRANSFER- reference. isTransfer reports the
// prefix; ok is false when the rest is not a valid id.
func (p *AsaasWebhookPayment) TransferRequestID() (id uuid.UUID, isTransfer bool, ok bool) {
	if !strings.HasPrefix(p.ExternalReference, model.TransferReferencePrefix) {
		return uuid.Nil, false, false
	}
	parsed, err := uuid.Parse(strings.TrimPrefix(p.ExternalReference, model.TransferReferencePrefix))
	if err != nil {
		return uuid.Nil, true, false
	}
	return parsed, true, true
}

// WebhookOutcome is reported back to the caller of the webhook endpoint and the replay tool
type WebhookOutcome struct {
	EventID   uuid.UUID `json:"event_id"`
	Processed bool      `json:"processed"`
	Message   string    `json:"message"`
}
