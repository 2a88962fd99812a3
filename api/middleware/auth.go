package middleware

import (
	"net/http"
	"strings"

	"github.com/bazar-market/bazar-backend/api/responses"
	pkgAuth "github.com/bazar-market/bazar-backend/pkg/auth"
	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// bearerToken accepts "Bearer <jwt>" in any case, or a bare token.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	switch {
	case len(parts) == 1 && !strings.EqualFold(parts[0], "bearer"):
		return parts[0]
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		return parts[1]
	}
	return ""
}

func deny(logg *logger.Logger, code pkgerrors.Code, msg string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, cause error) {
		var err error
		if cause != nil {
			err = pkgerrors.Wrap(code, cause, msg)
		} else {
			err = pkgerrors.New(code, msg)
		}
		responses.WriteError(r.Context(), logg, w, err)
	}
}

// Auth verifies the access token and stores the caller identity on the context,
// both for handlers and for every log line below this point.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	unauthorized := deny(logg, pkgerrors.CodeUnauthorized, "missing credentials")
	invalid := deny(logg, pkgerrors.CodeUnauthorized, "invalid token")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, r, nil)
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				invalid(w, r, err)
				return
			}

			userID, role := claims.UserID.String(), claims.Role.String()
			ctx := WithRole(WithUserID(r.Context(), userID), role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			}
			if claims.SellerID != nil {
				sellerID := claims.SellerID.String()
				ctx = WithSellerID(ctx, sellerID)
				if logg != nil {
					ctx = logg.WithSellerID(ctx, sellerID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only callers whose token carries role.
func RequireRole(role enums.Role, logg *logger.Logger) func(http.Handler) http.Handler {
	forbidden := deny(logg, pkgerrors.CodeForbidden, "role required")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role.String() {
				forbidden(w, r, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SellerContext rejects seller routes whose token carries no seller id.
func SellerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	forbidden := deny(logg, pkgerrors.CodeForbidden, "seller context missing")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SellerIDFromContext(r.Context()) == "" {
				forbidden(w, r, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
