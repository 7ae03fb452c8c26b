package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest describes a gateway payment to create
type PaymentRequest struct {
	Value             decimal.Decimal
	DueDate           time.Time
	Description       string
	BillingType       string
	ExternalReference string
}

// PaymentInfo is what callers need to present a payment to the payer
type PaymentInfo struct {
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Status           string          `json:"status,omitempty"`
	Value            decimal.Decimal `json:"value"`
	BillingType      string          `json:"billing_type,omitempty"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	QRCodePayload    *string         `json:"qr_code_payload,omitempty"`
	QRCodeImage      *string         `json:"qr_code_image,omitempty"`
	InvoiceURL       *string         `json:"invoice_url,omitempty"`
	// Warning is set when the registration was saved but the payment could not be issued.
	Warning string `json:"warning,omitempty"`
}

// CustomerResult is returned by customer lookup/creation
type CustomerResult struct {
	GatewayCustomerID string
	Created           bool
}

// PaymentStatusResult is the outcome of a status poll
type PaymentStatusResult struct {
	Status        string
	PaymentDate   *time.Time
	TransactionID *string
}
