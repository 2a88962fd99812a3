package subscriptions

import (
	"context"
	"time"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists the plan catalog and seller subscriptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	CountPlans(ctx context.Context) (int64, error)
	InsertPlans(ctx context.Context, plans []models.SubscriptionPlan) error
	FindPlanByType(ctx context.Context, planType enums.PlanType) (*models.SubscriptionPlan, error)
	FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error)
	LockBySeller(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error)
	CreateIfAbsent(ctx context.Context, sub *models.SellerSubscription) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListExpired(ctx context.Context, today time.Time) ([]models.SellerSubscription, error)
	DowngradeIfExpired(ctx context.Context, id uuid.UUID, today time.Time, fields map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the subscription repository to the provided GORM handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.WithContext(ctx).Order("price_cents ASC").Find(&plans).Error
	return plans, err
}

func (r *repository) CountPlans(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.SubscriptionPlan{}).Count(&n).Error
	return n, err
}

func (r *repository) InsertPlans(ctx context.Context, plans []models.SubscriptionPlan) error {
	if len(plans) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "plan_type"}}, DoNothing: true}).
		Create(&plans).Error
}

func (r *repository) FindPlanByType(ctx context.Context, planType enums.PlanType) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).Where("plan_type = ?", planType).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error) {
	var sub models.SellerSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("seller_id = ?", sellerID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// LockBySeller loads the seller's subscription with a row lock held until the
// surrounding transaction ends. Concurrent quota checks for one seller queue here.
func (r *repository) LockBySeller(ctx context.Context, sellerID uuid.UUID) (*models.SellerSubscription, error) {
	var sub models.SellerSubscription
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Plan").
		Where("seller_id = ?", sellerID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateIfAbsent inserts the subscription unless the seller already has one.
func (r *repository) CreateIfAbsent(ctx context.Context, sub *models.SellerSubscription) error {
	return r.db.WithContext(ctx).
		Omit("Plan").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "seller_id"}}, DoNothing: true}).
		Create(sub).Error
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerSubscription{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListExpired returns paid subscriptions whose end date lies strictly before today.
func (r *repository) ListExpired(ctx context.Context, today time.Time) ([]models.SellerSubscription, error) {
	var subs []models.SellerSubscription
	err := r.db.WithContext(ctx).
		Where("plan_type <> ? AND end_date < ?", enums.PlanTypeFree, today).
		Order("end_date ASC").
		Find(&subs).Error
	return subs, err
}

// DowngradeIfExpired applies fields only while the row is still an expired paid plan, so a
// renewal landing between list and update wins.
func (r *repository) DowngradeIfExpired(ctx context.Context, id uuid.UUID, today time.Time, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SellerSubscription{}).
		Where("id = ? AND plan_type <> ? AND end_date < ?", id, enums.PlanTypeFree, today).
		Updates(fields)
	return res.RowsAffected, res.Error
}
