package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the customer identity row. It is owned by the identity service and only read here.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	Mobile    *string   `gorm:"column:mobile"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
