package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/bazar-market/bazar-backend/pkg/errors"
)

type shippingAddress struct {
	City string `json:"city" validate:"required,max=10"`
}

type couponRequest struct {
	Code     string          `json:"code" validate:"required,notblank,code,max=16"`
	Quantity int             `json:"quantity" validate:"min=1,max=5"`
	Address  shippingAddress `json:"address"`
}

func decode(body string) (couponRequest, error) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var dest couponRequest
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details were %T", typed.Details())
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(`{"code":"SAVE-10","quantity":2,"address":{"city":"Pune"}}`)
	require.NoError(t, err)
	assert.Equal(t, "SAVE-10", got.Code)
	assert.Equal(t, "Pune", got.Address.City)
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	_, err := decode(`{"code":"bad code!","quantity":9,"address":{"city":""}}`)
	details := detailsOf(t, err)
	assert.Equal(t, "may only contain letters, digits, '-' and '_'", details["code"])
	assert.Equal(t, "must be at most 5", details["quantity"])
	assert.Equal(t, "is required", details["address.city"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"unknown":  `{"code":"A","quantity":1,"address":{"city":"x"},"extra":true}`,
		"trailing": `{"code":"A","quantity":1,"address":{"city":"x"}} {}`,
		"type":     `{"code":"A","quantity":"one"}`,
		"syntax":   `{"code":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(body)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	body := `{"code":"` + strings.Repeat("A", MaxBodyBytes) + `"}`
	_, err := decode(body)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 0))
	assert.Equal(t, "ab", SanitizeString("abcdef", 2))
	assert.Equal(t, "né", SanitizeString("néon", 2))
}
