package provider

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	pkgerrors "github.com/thekiqdev/raceflow-hub-sub001/pkg/errors"
)

// PaymentGateway is the external payment processor (Asaas).
type PaymentGateway interface {
	// FindCustomerByTaxID returns nil, nil when no customer has the CPF/CNPJ.
	FindCustomerByTaxID(ctx context.Context, taxID string) (*Customer, error)
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error)
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	// GetPixQRCode returns nil, nil when the QR code is not available yet.
	GetPixQRCode(ctx context.Context, paymentID string) (*PixQRCode, error)
	GetProviderName() string
}

// Customer is a gateway customer
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj"`
}

// CreateCustomerRequest holds the data sent when registering a payer
type CreateCustomerRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	CpfCnpj           string `json:"cpfCnpj"`
	MobilePhone       string `json:"mobilePhone,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// CreatePaymentRequest is a provider-agnostic charge request
type CreatePaymentRequest struct {
	CustomerID        string
	BillingType       string
	Value             decimal.Decimal
	DueDate           time.Time
	Description       string
	ExternalReference string
}

// Payment is a gateway payment object
type Payment struct {
	ID                string
	CustomerID        string
	Status            string
	BillingType       string
	Value             decimal.Decimal
	NetValue          decimal.NullDecimal
	DueDate           time.Time
	PaymentDate       *time.Time
	InvoiceURL        string
	ExternalReference string
	TransactionID     string
	// PixQRCode is set when the response already carried the QR code.
	PixQRCode *PixQRCode
}

// PixQRCode is the scannable image and copy-paste payload of a PIX charge
type PixQRCode struct {
	ID             string
	EncodedImage   string
	Payload        string
	ExpirationDate *time.Time
}

// ErrorDetail is one entry of the gateway's structured error list
type ErrorDetail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GatewayError is a non-2xx answer from the gateway. Message is assembled
// from the error list so it can be shown to an operator as-is.
type GatewayError struct {
	StatusCode  int
	GatewayCode string
	Message     string
	Details     []ErrorDetail
}

func (e *GatewayError) Error() string {
	return "payment gateway error: " + e.Message
}

// Code implements pkg/errors.Error
func (e *GatewayError) Code() string {
	return pkgerrors.ErrBadGateway
}

func (e *GatewayError) Unwrap() error {
	return nil
}

// IsInvalidTaxID reports whether the gateway rejected the CPF/CNPJ.
func (e *GatewayError) IsInvalidTaxID() bool {
	for _, d := range e.Details {
		code := strings.ToLower(d.Code)
		desc := strings.ToLower(d.Description)
		if strings.Contains(code, "cpfcnpj") || strings.Contains(code, "invalid_cpf") {
			return true
		}
		if (strings.Contains(desc, "cpf") || strings.Contains(desc, "cnpj")) &&
			(strings.Contains(desc, "inválido") || strings.Contains(desc, "invalido") || strings.Contains(desc, "invalid")) {
			return true
		}
	}
	return false
}

// TransientError means the gateway could not be reached or did not answer.
// Callers may retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return "payment gateway unreachable (" + e.Op + "): " + e.Err.Error()
}

// Code implements pkg/errors.Error
func (e *TransientError) Code() string {
	return pkgerrors.ErrUnavailable
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
