package controllers

import (
	"net/http"

	"github.com/kiranacart/kiranacart-backend/api/responses"
	"github.com/kiranacart/kiranacart-backend/api/validators"
	riderssvc "github.com/kiranacart/kiranacart-backend/internal/riders"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
)

// RiderAvailability lets a rider toggle their own pool status.
func RiderAvailability(svc riderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload riderAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.RiderStatus(payload.Status)
		if !status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid rider status").WithDetails(map[string]any{"status": payload.Status}))
			return
		}

		rider, err := svc.SetAvailability(r.Context(), userID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, riderResponse{
			RiderID: rider.ID.String(),
			Name:    rider.Name,
			Status:  string(rider.Status),
		})
	}
}

type riderAvailabilityRequest struct {
	Status string `json:"status" validate:"required"`
}
