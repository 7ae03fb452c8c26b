package asaas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"go.uber.org/zap"
)

type createPaymentBody struct {
	Customer          string      `json:"customer"`
	BillingType       string      `json:"billingType"`
	Value             json.Number `json:"value"`
	DueDate           string      `json:"dueDate"`
	Description       string      `json:"description,omitempty"`
	ExternalReference string      `json:"externalReference,omitempty"`
}

type paymentResponse struct {
	ID                string           `json:"id"`
	Customer          string           `json:"customer"`
	Status            string           `json:"status"`
	BillingType       string           `json:"billingType"`
	Value             decimal.Decimal  `json:"value"`
	NetValue          *decimal.Decimal `json:"netValue"`
	DueDate           string           `json:"dueDate"`
	PaymentDate       string           `json:"paymentDate"`
	ClientPaymentDate string           `json:"clientPaymentDate"`
	InvoiceURL        string           `json:"invoiceUrl"`
	ExternalReference string           `json:"externalReference"`
	PixTransaction    string           `json:"pixTransaction"`
	PixTransactionID  string           `json:"pixTransactionId"`
}

type pixQRCodeResponse struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// CreatePayment creates a charge
// POST /payments
func (c *Client) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.Payment, error) {
	payload := createPaymentBody{
		Customer:          req.CustomerID,
		BillingType:       req.BillingType,
		Value:             json.Number(req.Value.StringFixed(2)),
		DueDate:           req.DueDate.Format(dateLayout),
		Description:       req.Description,
		ExternalReference: req.ExternalReference,
	}

	body, err := c.do(ctx, "create_payment", http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}

	payment, err := decodePayment(body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Asaas payment created",
		zap.String("gateway_payment_id", payment.ID),
		zap.String("billing_type", payment.BillingType),
		zap.String("external_reference", payment.ExternalReference),
		zap.Bool("qr_code_embedded", payment.PixQRCode != nil))
	return payment, nil
}

// GetPayment fetches the current state of a charge
// GET /payments/{id}
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*provider.Payment, error) {
	body, err := c.do(ctx, "get_payment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}
	return decodePayment(body)
}

// GetPixQRCode fetches the QR code of a PIX charge
// GET /payments/{id}/pixQrCode
func (c *Client) GetPixQRCode(ctx context.Context, paymentID string) (*provider.PixQRCode, error) {
	body, err := c.do(ctx, "get_pix_qr_code", http.MethodGet, "/payments/"+url.PathEscape(paymentID)+"/pixQrCode", nil)
	if err != nil {
		return nil, err
	}

	var resp pixQRCodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.GatewayError{GatewayCode: "PARSE_ERROR", Message: "Failed to parse QR code: " + err.Error()}
	}
	if resp.Payload == "" {
		return nil, nil
	}
	return &provider.PixQRCode{
		EncodedImage:   resp.EncodedImage,
		Payload:        resp.Payload,
		ExpirationDate: parseDate(resp.ExpirationDate),
	}, nil
}

func decodePayment(body []byte) (*provider.Payment, error) {
	var resp paymentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.GatewayError{GatewayCode: "PARSE_ERROR", Message: "Failed to parse payment: " + err.Error()}
	}

	payment := &provider.Payment{
		ID:                resp.ID,
		CustomerID:        resp.Customer,
		Status:            resp.Status,
		BillingType:       resp.BillingType,
		Value:             resp.Value,
		InvoiceURL:        resp.InvoiceURL,
		ExternalReference: resp.ExternalReference,
		TransactionID:     firstNonEmpty(resp.PixTransactionID, resp.PixTransaction),
		PaymentDate:       parseDate(firstNonEmpty(resp.PaymentDate, resp.ClientPaymentDate)),
	}
	if resp.NetValue != nil {
		payment.NetValue = decimal.NewNullDecimal(*resp.NetValue)
	}
	if due := parseDate(resp.DueDate); due != nil {
		payment.DueDate = *due
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err == nil {
		payment.PixQRCode = scanQRCode(raw, false)
	}
	return payment, nil
}

// scanQRCode looks for a QR code the gateway embedded in a payment object.
// Depending on account settings it comes as a nested object or flat fields.
func scanQRCode(raw map[string]interface{}, nested bool) *provider.PixQRCode {
	for _, key := range []string{"pixQrCode", "qrCode", "pix"} {
		switch v := raw[key].(type) {
		case map[string]interface{}:
			if qr := scanQRCode(v, true); qr != nil {
				return qr
			}
		case string:
			if v != "" {
				return &provider.PixQRCode{Payload: v, ID: stringField(raw, "pixQrCodeId")}
			}
		}
	}

	payload := firstNonEmpty(stringField(raw, "payload"), stringField(raw, "pixCopiaECola"), stringField(raw, "copyPaste"))
	if payload == "" {
		return nil
	}
	id := stringField(raw, "pixQrCodeId")
	if id == "" && nested {
		id = stringField(raw, "id")
	}
	return &provider.PixQRCode{
		ID:             id,
		EncodedImage:   stringField(raw, "encodedImage"),
		Payload:        payload,
		ExpirationDate: parseDate(stringField(raw, "expirationDate")),
	}
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
