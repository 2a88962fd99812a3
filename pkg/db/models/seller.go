package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seller is the vendor identity row. It is owned by the identity service and only read here.
type Seller struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name            string     `gorm:"column:name;not null"`
	Email           string     `gorm:"column:email;type:text;not null"`
	Mobile          *string    `gorm:"column:mobile"`
	PickupAddressID *uuid.UUID `gorm:"column:pickup_address_id;type:uuid"`
	PickupAddress   *Address   `gorm:"foreignKey:PickupAddressID"`
	BusinessAddress *string    `gorm:"column:business_address"`
	BusinessMobile  *string    `gorm:"column:business_mobile"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Seller) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
