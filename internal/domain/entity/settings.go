package entity

import "github.com/shopspring/decimal"

// SystemSettings is a point-in-time snapshot of the settings a workflow
// invocation depends on. It is read once per request and passed down.
type SystemSettings struct {
	TransfersEnabled bool
	TransferFee      decimal.Decimal
}
