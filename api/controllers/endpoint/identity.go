package endpoint

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/middleware"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
)

func UserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// SellerID is forbidden, not unauthorized, when absent: the caller is known but is no seller.
func SellerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.SellerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller context required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id")
	}
	return id, nil
}

// PathID parses the named chi route parameter as a UUID.
func PathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// UserAndPathID resolves the caller and one path id together.
func UserAndPathID(r *http.Request, name string) (uuid.UUID, uuid.UUID, error) {
	userID, err := UserID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := PathID(r, name)
	return userID, id, err
}

// SellerAndPathID resolves the seller and one path id together.
func SellerAndPathID(r *http.Request, name string) (uuid.UUID, uuid.UUID, error) {
	sellerID, err := SellerID(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := PathID(r, name)
	return sellerID, id, err
}
