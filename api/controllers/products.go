package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	"github.com/bazar-market/bazar-backend/api/validators"
	productsvc "github.com/bazar-market/bazar-backend/internal/products"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// ProductService is implemented by internal/products.
type ProductService interface {
	Get(ctx context.Context, id uuid.UUID) (*productsvc.ProductDTO, error)
	Create(ctx context.Context, sellerID uuid.UUID, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error)
}

type createProductRequest struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=4000"`
	MRPCents     int64   `json:"mrp_cents" validate:"required,min=1"`
	SellingCents int64   `json:"selling_cents" validate:"required,min=1"`
}

func (p createProductRequest) toCreateInput() productsvc.CreateProductInput {
	input := productsvc.CreateProductInput{
		Title:        validators.SanitizeString(p.Title, 200),
		MRPCents:     p.MRPCents,
		SellingCents: p.SellingCents,
	}
	if p.Description != nil {
		desc := validators.SanitizeString(*p.Description, 4000)
		input.Description = &desc
	}
	return input
}

// PublicGetProduct returns an active product by id.
func PublicGetProduct(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, "product service")
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		productID, err := endpoint.PathID(r, "productId")
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), productID)
	})
}

// SellerCreateProduct lists a product once the seller's plan quota allows it.
func SellerCreateProduct(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, "product service")
	}
	return endpoint.JSON(logg, http.StatusCreated, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		req, err := endpoint.Body[createProductRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.Create(r.Context(), sellerID, req.toCreateInput())
	})
}
