package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranacart/kiranacart-backend/api/responses"
	"github.com/kiranacart/kiranacart-backend/api/validators"
	"github.com/kiranacart/kiranacart-backend/internal/riders"
	"github.com/kiranacart/kiranacart-backend/internal/shops"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
)

// ShopDeliverySettings returns the owner-editable delivery configuration.
func ShopDeliverySettings(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, ownerID, err := shopRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.GetDeliverySettings(r.Context(), shopID, ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, settings)
	}
}

// ShopUpdateDeliverySettings replaces radius, zones and the delivery profile.
// Overlap and gap findings come back as warnings, not rejections.
func ShopUpdateDeliverySettings(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, ownerID, err := shopRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shops.DeliverySettings
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.UpdateDeliverySettings(r.Context(), shopID, ownerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, settings)
	}
}

// ShopAvailableRiders lists riders the shopkeeper can assign right now.
func ShopAvailableRiders(svc riders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, _, err := shopRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.ShopID == nil || *actor.ShopID != shopID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "you do not manage this shop"))
			return
		}

		pool, err := svc.ListAvailable(r.Context(), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newRiderListResponse(pool))
	}
}

func shopRequestParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	shopID, err := pathUUID(r, chi.URLParam(r, "shopId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return shopID, userID, nil
}

type riderResponse struct {
	RiderID string `json:"rider_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
}

func newRiderListResponse(pool []models.Rider) []riderResponse {
	out := make([]riderResponse, 0, len(pool))
	for _, rider := range pool {
		out = append(out, riderResponse{
			RiderID: rider.ID.String(),
			Name:    rider.Name,
			Status:  string(rider.Status),
		})
	}
	return out
}
