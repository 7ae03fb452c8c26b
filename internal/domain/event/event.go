// Package event models gateway payment notifications as a closed set of
// variants and maps each one to a registration state transition.
package event

import "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"

// Gateway event types
const (
	TypePaymentConfirmed = "PAYMENT_CONFIRMED"
	TypePaymentReceived  = "PAYMENT_RECEIVED"
	TypePaymentOverdue   = "PAYMENT_OVERDUE"
	TypePaymentRefunded  = "PAYMENT_REFUNDED"
	TypePaymentUpdated   = "PAYMENT_UPDATED"
)

// PaymentEvent is implemented only by the variants in this package.
type PaymentEvent interface {
	Type() string
	sealed()
}

type PaymentConfirmed struct{}
type PaymentReceived struct{}
type PaymentOverdue struct{}
type PaymentRefunded struct{}

// PaymentUpdated carries the gateway's current status; local state is
// re-derived from it instead of assuming a direction.
type PaymentUpdated struct {
	Status string
}

// Unhandled is any event type this service does not act on.
type Unhandled struct {
	EventType string
}

func (PaymentConfirmed) Type() string { return TypePaymentConfirmed }
func (PaymentReceived) Type() string  { return TypePaymentReceived }
func (PaymentOverdue) Type() string   { return TypePaymentOverdue }
func (PaymentRefunded) Type() string  { return TypePaymentRefunded }
func (PaymentUpdated) Type() string   { return TypePaymentUpdated }
func (u Unhandled) Type() string      { return u.EventType }

func (PaymentConfirmed) sealed() {}
func (PaymentReceived) sealed()  {}
func (PaymentOverdue) sealed()   {}
func (PaymentRefunded) sealed()  {}
func (PaymentUpdated) sealed()   {}
func (Unhandled) sealed()        {}

// Parse builds the variant for a webhook (eventType, payment.status) pair.
func Parse(eventType, gatewayStatus string) PaymentEvent {
	switch eventType {
	case TypePaymentConfirmed:
		return PaymentConfirmed{}
	case TypePaymentReceived:
		return PaymentReceived{}
	case TypePaymentOverdue:
		return PaymentOverdue{}
	case TypePaymentRefunded:
		return PaymentRefunded{}
	case TypePaymentUpdated:
		return PaymentUpdated{Status: gatewayStatus}
	default:
		return Unhandled{EventType: eventType}
	}
}

// FromPolledStatus maps a status read directly from the gateway. Polls have
// the same meaning as a PAYMENT_UPDATED notification.
func FromPolledStatus(gatewayStatus string) PaymentEvent {
	return PaymentUpdated{Status: gatewayStatus}
}

// IsSettled reports whether a gateway status means the money arrived.
func IsSettled(gatewayStatus string) bool {
	return gatewayStatus == model.GatewayStatusConfirmed || gatewayStatus == model.GatewayStatusReceived
}
