package controllers

import (
	"io"
	"net/http"

	"github.com/kiranacart/kiranacart-backend/api/responses"
	"github.com/kiranacart/kiranacart-backend/api/validators"
	paymentssvc "github.com/kiranacart/kiranacart-backend/internal/payments"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"

	maxWebhookBody = 1 << 20
)

// PaymentVerify reconciles the widget callback against the recorded attempt.
func PaymentVerify(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload paymentssvc.VerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifyCallback(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RazorpayWebhook consumes gateway events. The signature covers the raw body,
// so the body is read before any decoding.
func RazorpayWebhook(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable webhook body"))
			return
		}

		signature := r.Header.Get(razorpaySignatureHeader)
		eventID := r.Header.Get(razorpayEventIDHeader)

		result, err := svc.HandleWebhook(r.Context(), payload, signature, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
