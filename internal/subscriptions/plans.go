package subscriptions

import (
	"strings"
	"time"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
)

const (
	// MetadataSellerID marks a checkout session as a subscription purchase.
	MetadataSellerID = "sellerId"
	MetadataPlanType = "planType"
	MetadataPlanName = "planName"
)

// ResolvePlanType maps a free-form plan label to a tier. Unknown labels fall back to FREE.
func ResolvePlanType(label string) enums.PlanType {
	upper := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case upper == "":
		return enums.PlanTypeFree
	case strings.Contains(upper, "INTERMEDIATE"):
		return enums.PlanTypeIntermediate
	case strings.Contains(upper, "BEGINNER"), strings.Contains(upper, "BASIC"):
		return enums.PlanTypeBeginner
	case strings.Contains(upper, "PROFESSIONAL"), strings.Contains(upper, "PRO"):
		return enums.PlanTypePro
	default:
		return enums.PlanTypeFree
	}
}

// PlanFromMetadata prefers the explicit plan type and falls back to the display name.
func PlanFromMetadata(meta map[string]string) (enums.PlanType, bool) {
	if meta == nil {
		return "", false
	}
	if raw := strings.TrimSpace(meta[MetadataPlanType]); raw != "" {
		return ResolvePlanType(raw), true
	}
	if raw := strings.TrimSpace(meta[MetadataPlanName]); raw != "" {
		return ResolvePlanType(raw), true
	}
	return "", false
}

// DefaultPlans is the catalog seeded into an empty database.
func DefaultPlans() []models.SubscriptionPlan {
	limit := func(n int) *int { return &n }
	return []models.SubscriptionPlan{
		{PlanType: enums.PlanTypeFree, Name: "Free", PriceCents: 0, MaxProducts: limit(2)},
		{PlanType: enums.PlanTypeBeginner, Name: "Beginner", PriceCents: 1000, MaxProducts: limit(10)},
		{PlanType: enums.PlanTypeIntermediate, Name: "Intermediate", PriceCents: 5000, MaxProducts: limit(100)},
		{PlanType: enums.PlanTypePro, Name: "Pro", PriceCents: 10000},
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// periodEnd is one month after start for paid tiers and effectively open-ended for FREE.
func periodEnd(plan enums.PlanType, start time.Time) time.Time {
	if plan.IsFree() {
		return start.AddDate(100, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}
