package product

import (
	"time"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProductDTO is the public representation of a catalog row.
type ProductDTO struct {
	ID           uuid.UUID `json:"id"`
	SellerID     uuid.UUID `json:"seller_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	MRPCents     int64     `json:"mrp_cents"`
	SellingCents int64     `json:"selling_cents"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateProductInput holds the validated payload to list a product.
type CreateProductInput struct {
	Title        string
	Description  *string
	MRPCents     int64
	SellingCents int64
}

func toDTO(p *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:           p.ID,
		SellerID:     p.SellerID,
		Title:        p.Title,
		Description:  p.Description,
		MRPCents:     p.MRPCents,
		SellingCents: p.SellingCents,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}
