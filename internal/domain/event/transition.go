package event

import "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"

// Transition is the target state for a registration. An empty Status leaves
// the registration status unchanged.
type Transition struct {
	PaymentStatus model.PaymentStatus
	Status        model.RegistrationStatus
}

var (
	toPaid     = Transition{PaymentStatus: model.PaymentStatusPaid, Status: model.RegistrationStatusConfirmed}
	toFailed   = Transition{PaymentStatus: model.PaymentStatusFailed}
	toRefunded = Transition{PaymentStatus: model.PaymentStatusRefunded, Status: model.RegistrationStatusCancelled}
	toPending  = Transition{PaymentStatus: model.PaymentStatusPending}
)

// Decide returns the transition for ev. ok is false for events that must not
// touch the registration.
func Decide(ev PaymentEvent) (t Transition, ok bool) {
	switch e := ev.(type) {
	case PaymentConfirmed, PaymentReceived:
		return toPaid, true
	case PaymentOverdue:
		return toFailed, true
	case PaymentRefunded:
		return toRefunded, true
	case PaymentUpdated:
		switch e.Status {
		case model.GatewayStatusConfirmed, model.GatewayStatusReceived:
			return toPaid, true
		case model.GatewayStatusOverdue:
			return toFailed, true
		case model.GatewayStatusRefunded:
			return toRefunded, true
		default:
			return toPending, true
		}
	case Unhandled:
		return Transition{}, false
	default:
		return Transition{}, false
	}
}

// paymentRank orders payment statuses so that a stale or reordered delivery
// can never move a registration backwards.
var paymentRank = map[model.PaymentStatus]int{
	model.PaymentStatusPending:  0,
	model.PaymentStatusFailed:   1,
	model.PaymentStatusPaid:     2,
	model.PaymentStatusRefunded: 3,
}

// Apply merges t into the current state and returns the resulting pair.
// The merge is monotonic: a lower-ranked payment status is ignored, and
// "confirmed" only promotes a pending registration. Applying the same
// transition any number of times, in any order relative to an equivalent
// one, yields the same state.
//
// The one step down allowed is failed to pending: the gateway reopens an
// overdue charge when its due date is extended.
func (t Transition) Apply(status model.RegistrationStatus, payment model.PaymentStatus) (model.RegistrationStatus, model.PaymentStatus) {
	if t.PaymentStatus == model.PaymentStatusPending && payment == model.PaymentStatusFailed {
		return status, model.PaymentStatusPending
	}
	if paymentRank[t.PaymentStatus] < paymentRank[payment] {
		return status, payment
	}

	nextStatus := status
	switch t.Status {
	case model.RegistrationStatusConfirmed:
		if status == model.RegistrationStatusPending {
			nextStatus = model.RegistrationStatusConfirmed
		}
	case model.RegistrationStatusCancelled:
		nextStatus = model.RegistrationStatusCancelled
	}
	return nextStatus, t.PaymentStatus
}
