package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway payment statuses (Asaas vocabulary)
const (
	GatewayStatusPending   = "PENDING"
	GatewayStatusConfirmed = "CONFIRMED"
	GatewayStatusReceived  = "RECEIVED"
	GatewayStatusOverdue   = "OVERDUE"
	GatewayStatusRefunded  = "REFUNDED"
	GatewayStatusDeleted   = "DELETED"
)

// Billing types accepted by the gateway
const (
	BillingTypePix        = "PIX"
	BillingTypeBoleto     = "BOLETO"
	BillingTypeCreditCard = "CREDIT_CARD"
)

// External reference prefixes used to route webhooks back to local rows
const (
	RegistrationReferencePrefix = "REG-"
	TransferReferencePrefix     = "TRANSFER-"
)

// PaymentRecord is the ledger row for one gateway payment object.
// RegistrationID is nil when the payment funds a transfer fee.
type PaymentRecord struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	RegistrationID    *uuid.UUID          `gorm:"type:uuid;index" json:"registration_id,omitempty"`
	TransferRequestID *uuid.UUID          `gorm:"type:uuid;index" json:"transfer_request_id,omitempty"`
	GatewayPaymentID  string              `gorm:"column:gateway_payment_id;size:100;not null;uniqueIndex" json:"gateway_payment_id"`
	GatewayCustomerID string              `gorm:"column:gateway_customer_id;size:100;not null" json:"gateway_customer_id"`
	Value             decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"value"`
	NetValue          decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"net_value"`
	BillingType       string              `gorm:"size:20;not null" json:"billing_type"`
	Status            string              `gorm:"size:30;not null" json:"status"`
	DueDate           time.Time           `gorm:"type:date;not null" json:"due_date"`
	PaymentDate       *time.Time          `json:"payment_date,omitempty"`
	TransactionID     *string             `gorm:"size:100" json:"transaction_id,omitempty"`
	QRCodePayload     *string             `gorm:"column:qr_code_payload" json:"qr_code_payload,omitempty"`
	QRCodeImage       *string             `gorm:"column:qr_code_image" json:"qr_code_image,omitempty"`
	QRCodeID          *string             `gorm:"column:qr_code_id;size:100" json:"qr_code_id,omitempty"`
	InvoiceURL        *string             `gorm:"size:500" json:"invoice_url,omitempty"`
	ExternalReference string              `gorm:"size:100;not null;index" json:"external_reference"`
	CreatedAt         time.Time           `gorm:"default:now()" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PaymentRecord) TableName() string {
	return "asaas_payments"
}

// IsActive reports whether the record still counts as the registration's live payment.
func (p *PaymentRecord) IsActive() bool {
	switch p.Status {
	case GatewayStatusRefunded, GatewayStatusOverdue, GatewayStatusDeleted:
		return false
	}
	return true
}

// HasQRCode reports whether a PIX copy-paste payload was stored.
func (p *PaymentRecord) HasQRCode() bool {
	return p.QRCodePayload != nil && *p.QRCodePayload != ""
}
