package middleware

import "context"

// identity is what Auth learned about the caller. Handlers read it through the accessors.
type identity struct {
	userID   string
	role     string
	sellerID string
}

type identityKey struct{}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func withIdentity(ctx context.Context, mutate func(*identity)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id := identityFrom(ctx)
	mutate(&id)
	return context.WithValue(ctx, identityKey{}, id)
}

func UserIDFromContext(ctx context.Context) string   { return identityFrom(ctx).userID }
func RoleFromContext(ctx context.Context) string     { return identityFrom(ctx).role }
func SellerIDFromContext(ctx context.Context) string { return identityFrom(ctx).sellerID }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.role = role })
}

// WithSellerID marks the caller as acting for a seller account.
func WithSellerID(ctx context.Context, sellerID string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.sellerID = sellerID })
}
