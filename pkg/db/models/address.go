package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a reusable shipping or pickup address. Orders reference it without owning it.
type Address struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	Name        string     `gorm:"column:name;not null"`
	Locality    *string    `gorm:"column:locality"`
	AddressLine string     `gorm:"column:address_line;not null"`
	City        string     `gorm:"column:city;not null"`
	State       string     `gorm:"column:state;not null"`
	Pincode     string     `gorm:"column:pincode;not null"`
	Mobile      *string    `gorm:"column:mobile"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
