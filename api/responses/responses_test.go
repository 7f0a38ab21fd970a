package responses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string, details any) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code, envelope.Error.Message, envelope.Error.Details
}

func TestWriteErrorSurfacesUserFacingMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeUnserviceable, "customer is 7.2 km away, beyond the 5.0 km delivery radius")

	WriteError(context.Background(), nil, rec, err)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	code, message, _ := decodeError(t, rec)
	assert.Equal(t, "UNSERVICEABLE", code)
	assert.Equal(t, "customer is 7.2 km away, beyond the 5.0 km delivery radius", message)
}

func TestWriteErrorHidesSignatureMismatchCause(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeSignatureMismatch, "hmac digest did not match the recorded attempt")

	WriteError(context.Background(), nil, rec, err)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, message, _ := decodeError(t, rec)
	assert.Equal(t, "payment verification failed", message)
}

func TestWriteErrorOmitsDetailsWhenDisallowed(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeForbidden, "access denied").
		WithDetails(map[string]any{"shop_id": "secret"})

	WriteError(context.Background(), nil, rec, err)

	_, _, details := decodeError(t, rec)
	assert.Nil(t, details)
}

func TestWriteErrorIncludesValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "incomplete delivery address").
		WithDetails(map[string]any{"missing_fields": []string{"pincode"}})

	WriteError(context.Background(), nil, rec, err)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, _, details := decodeError(t, rec)
	require.NotNil(t, details)
}

func TestWriteErrorWrapsUntypedAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(context.Background(), nil, rec, assert.AnError)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	code, message, _ := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", code)
	assert.Equal(t, "internal server error", message)
}

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteSuccess(rec, map[string]string{"status": "ready"})

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ready", envelope.Data["status"])
}
