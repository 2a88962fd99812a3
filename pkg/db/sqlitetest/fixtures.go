package sqlitetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
)

// User inserts a customer row.
func User(t testing.TB, conn *gorm.DB) *models.User {
	t.Helper()
	u := &models.User{
		FullName: "Test Buyer",
		Email:    fmt.Sprintf("buyer_%s@example.com", uuid.NewString()),
	}
	mustCreate(t, conn, u)
	return u
}

// Seller inserts a user plus the seller row that belongs to it.
func Seller(t testing.TB, conn *gorm.DB) *models.Seller {
	t.Helper()
	owner := User(t, conn)
	pickup := Address(t, conn, &owner.ID)
	s := &models.Seller{
		UserID:          owner.ID,
		Name:            "Test Seller",
		Email:           fmt.Sprintf("seller_%s@example.com", uuid.NewString()),
		PickupAddressID: &pickup.ID,
	}
	mustCreate(t, conn, s)
	return s
}

// Address inserts an address, optionally owned by a user.
func Address(t testing.TB, conn *gorm.DB, userID *uuid.UUID) *models.Address {
	t.Helper()
	a := &models.Address{
		UserID:      userID,
		Name:        "Home",
		AddressLine: "12 Market Street",
		City:        "Pune",
		State:       "MH",
		Pincode:     "411001",
	}
	mustCreate(t, conn, a)
	return a
}

// Product inserts an active listing for the seller.
func Product(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, mrpCents, sellingCents int64) *models.Product {
	t.Helper()
	p := &models.Product{
		SellerID:     sellerID,
		Title:        "Item " + uuid.NewString()[:8],
		MRPCents:     mrpCents,
		SellingCents: sellingCents,
		IsActive:     true,
	}
	mustCreate(t, conn, p)
	return p
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}
