package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ModuleTransfers is the enabled_modules key that gates the transfer workflow.
const ModuleTransfers = "transfers"

// SystemSettings is the singleton settings row
type SystemSettings struct {
	ID             int               `gorm:"primaryKey" json:"id"`
	EnabledModules datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"enabled_modules"`
	TransferFee    decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"transfer_fee"`
	UpdatedAt      time.Time         `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SystemSettings) TableName() string {
	return "system_settings"
}

// ModuleEnabled reads a boolean flag from enabled_modules. Missing keys are disabled.
func (s *SystemSettings) ModuleEnabled(name string) bool {
	if s == nil || s.EnabledModules == nil {
		return false
	}
	enabled, _ := s.EnabledModules[name].(bool)
	return enabled
}
