package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazar-market/bazar-backend/pkg/enums"
)

// SubscriptionPlan is a catalog entry. A nil MaxProducts means unlimited.
type SubscriptionPlan struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	PlanType    enums.PlanType `gorm:"column:plan_type;type:plan_type;not null;uniqueIndex:ux_subscription_plans_type"`
	Name        string         `gorm:"column:name;not null"`
	PriceCents  int64          `gorm:"column:price_cents;not null;default:0"`
	MaxProducts *int           `gorm:"column:max_products"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *SubscriptionPlan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Unlimited reports whether the plan places no cap on listed products.
func (p SubscriptionPlan) Unlimited() bool {
	return p.MaxProducts == nil
}

// SellerSubscription is the single current subscription of a seller.
type SellerSubscription struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SellerID             uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_seller_subscriptions_seller"`
	PlanID               uuid.UUID         `gorm:"column:plan_id;type:uuid;not null"`
	Plan                 *SubscriptionPlan `gorm:"foreignKey:PlanID"`
	PlanType             enums.PlanType    `gorm:"column:plan_type;type:plan_type;not null"`
	StartDate            time.Time         `gorm:"column:start_date;type:date;not null"`
	EndDate              time.Time         `gorm:"column:end_date;type:date;not null;index"`
	StripeSubscriptionID *string           `gorm:"column:stripe_subscription_id"`
	AutoRenew            bool              `gorm:"column:auto_renew;not null;default:false"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *SellerSubscription) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsActive reports whether the subscription end date lies after the given day.
func (s SellerSubscription) IsActive(today time.Time) bool {
	return s.EndDate.After(today)
}
