package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile is owned by the account service; this service only reads it.
type Profile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	CPF       string    `gorm:"column:cpf;size:14;index" json:"cpf"`
	Phone     *string   `gorm:"size:30" json:"phone,omitempty"`
	Role      string    `gorm:"size:20;default:'runner'" json:"role"`
	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}
