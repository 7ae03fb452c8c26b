package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer maps a local user to the gateway customer created for them
type Customer struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	GatewayCustomerID string    `gorm:"column:gateway_customer_id;size:100;not null;uniqueIndex" json:"gateway_customer_id"`
	CPF               string    `gorm:"column:cpf;size:14" json:"cpf"`
	Email             string    `gorm:"size:255" json:"email"`
	CreatedAt         time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Customer) TableName() string {
	return "asaas_customers"
}
