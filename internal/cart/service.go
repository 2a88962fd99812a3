package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the cart aggregate to the owner and to checkout/coupon flows.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*ItemView, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*ItemView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error

	// SetCouponTx stores (or clears, when code is nil) the coupon and re-derives totals
	// inside the caller's transaction.
	SetCouponTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code *string, percent *decimal.Decimal) (*View, error)
	// SnapshotTx returns the cart and its lines for checkout.
	SnapshotTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, []models.CartItem, error)
}

// AddItemInput is the payload for adding a product line.
type AddItemInput struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// Get returns the user's cart with freshly derived totals.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		c, items, err := s.loadAndRecompute(ctx, s.repo.WithTx(tx), userID)
		if err != nil {
			return err
		}
		view = newView(c, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AddItem snapshots the product price onto a new line. An existing line for the same
// product and size is returned unchanged.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*ItemView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	product, err := s.products.FindActiveByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.MRPCents <= 0 || product.SellingCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product prices must be positive")
	}

	var stored *models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		c, err := repo.EnsureCart(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
		}

		item := &models.CartItem{
			CartID:           c.ID,
			ProductID:        product.ID,
			Size:             strings.TrimSpace(input.Size),
			UserID:           userID,
			SellerID:         product.SellerID,
			Quantity:         input.Quantity,
			UnitMRPCents:     product.MRPCents,
			UnitSellingCents: product.SellingCents,
		}
		item.Reprice()

		stored, err = repo.InsertItemIfAbsent(ctx, item)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
		_, _, err = s.loadAndRecompute(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := newItemView(*stored)
	return &view, nil
}

// UpdateItem changes the quantity of an owned line using the stored unit snapshots.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*ItemView, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	var updated models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.ownedItem(ctx, repo, userID, itemID)
		if err != nil {
			return err
		}
		item.Quantity = quantity
		item.Reprice()
		if err := repo.UpdateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
		updated = *item
		_, _, err = s.loadAndRecompute(ctx, repo, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := newItemView(updated)
	return &view, nil
}

// RemoveItem deletes an owned line.
func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.ownedItem(ctx, repo, userID, itemID); err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
		}
		_, _, err := s.loadAndRecompute(ctx, repo, userID)
		return err
	})
}

func (s *service) SetCouponTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID, code *string, percent *decimal.Decimal) (*View, error) {
	repo := s.repo.WithTx(tx)
	c, err := repo.EnsureCart(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
	}
	items, err := repo.ListItems(ctx, c.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}

	if code == nil {
		c.CouponCode = nil
		c.CouponPercent = nil
	} else {
		c.CouponCode = code
		c.CouponPercent = percent
	}
	Recompute(items, c.CouponPercent).applyTo(c)
	if err := repo.SaveCart(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return newView(c, items), nil
}

func (s *service) SnapshotTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, []models.CartItem, error) {
	return s.loadAndRecompute(ctx, s.repo.WithTx(tx), userID)
}

func (s *service) loadAndRecompute(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, []models.CartItem, error) {
	c, err := repo.EnsureCart(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensure cart")
	}
	items, err := repo.ListItems(ctx, c.ID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	Recompute(items, c.CouponPercent).applyTo(c)
	if err := repo.SaveCart(ctx, c); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return c, items, nil
}

func (s *service) ownedItem(ctx context.Context, repo Repository, userID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if item.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another user")
	}
	return item, nil
}
