package entity

import "github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"

// RegistrationView is a registration as seen by a specific viewer.
// Status is projected: a previous owner of a transferred registration sees "transferred".
type RegistrationView struct {
	*model.Registration
	Payment *PaymentInfo `json:"payment,omitempty"`
}

// TransferView is a transfer request plus its fee payment, if any
type TransferView struct {
	*model.TransferRequest
	Payment *PaymentInfo `json:"payment,omitempty"`
}

// TransferExecution reports the outcome of an execution attempt.
// Executed is false when another path already completed the request.
type TransferExecution struct {
	Request  *model.TransferRequest
	Executed bool
}
