package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranacart/kiranacart-backend/api/middleware"
	"github.com/kiranacart/kiranacart-backend/internal/orders"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

// actorFromRequest rebuilds the authenticated actor from the context seeded
// by the auth middleware.
func actorFromRequest(r *http.Request) (orders.Actor, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return orders.Actor{}, err
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing actor role")
	}

	actor := orders.Actor{UserID: userID, Role: role}
	if raw := middleware.ShopIDFromContext(r.Context()); raw != "" {
		shopID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, parseErr, "invalid shop claim")
		}
		actor.ShopID = &shopID
	}
	return actor, nil
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user claim")
	}
	return userID, nil
}

func pathUUID(r *http.Request, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier in path")
	}
	return id, nil
}
