// Package endpoint adapts request-to-result functions into JSON handlers and resolves
// the caller identity that the auth middleware placed on the context.
package endpoint

import (
	"net/http"

	"github.com/bazar-market/bazar-backend/api/responses"
	"github.com/bazar-market/bazar-backend/api/validators"
	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

// Func computes the body of a successful response.
type Func func(r *http.Request) (any, error)

// JSON writes fn's result in the success envelope with status, or the error envelope.
// StatusNoContent skips the body.
func JSON(logg *logger.Logger, status int, fn Func) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// OK is JSON with 200.
func OK(logg *logger.Logger, fn Func) http.HandlerFunc {
	return JSON(logg, http.StatusOK, fn)
}

// Unavailable answers 500 for routes whose service was not wired.
func Unavailable(logg *logger.Logger, what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, what+" unavailable"))
	}
}

// Body decodes and validates the JSON request body.
func Body[T any](r *http.Request) (T, error) {
	var v T
	err := validators.DecodeJSONBody(r, &v)
	return v, err
}
