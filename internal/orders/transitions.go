package orders

import "github.com/kiranacart/kiranacart-backend/pkg/enums"

// Action names a lifecycle transition request.
type Action string

const (
	ActionAccept      Action = "accept"
	ActionAssignRider Action = "assign_rider"
	ActionAdvance     Action = "out_for_delivery"
	ActionComplete    Action = "delivered"
	ActionCancel      Action = "cancel"
)

type transition struct {
	to      enums.OrderStatus
	sources []enums.OrderStatus
	roles   []enums.ActorRole
}

// transitionTable is the full set of legal moves. Terminal states appear in
// no source list, so they absorb every further attempt.
var transitionTable = map[Action]transition{
	ActionAccept: {
		to:      enums.OrderStatusAcceptedByShopkeeper,
		sources: []enums.OrderStatus{enums.OrderStatusPending},
		roles:   []enums.ActorRole{enums.ActorRoleShopkeeper},
	},
	ActionAssignRider: {
		to:      enums.OrderStatusAssignedToRider,
		sources: []enums.OrderStatus{enums.OrderStatusAcceptedByShopkeeper},
		roles:   []enums.ActorRole{enums.ActorRoleShopkeeper},
	},
	ActionAdvance: {
		to:      enums.OrderStatusOutForDelivery,
		sources: []enums.OrderStatus{enums.OrderStatusAssignedToRider},
		roles:   []enums.ActorRole{enums.ActorRoleShopkeeper, enums.ActorRoleRider},
	},
	ActionComplete: {
		to:      enums.OrderStatusDelivered,
		sources: []enums.OrderStatus{enums.OrderStatusOutForDelivery},
		roles:   []enums.ActorRole{enums.ActorRoleShopkeeper, enums.ActorRoleRider},
	},
	ActionCancel: {
		to: enums.OrderStatusCancelled,
		sources: []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusAcceptedByShopkeeper,
			enums.OrderStatusAssignedToRider,
		},
		roles: []enums.ActorRole{enums.ActorRoleShopkeeper, enums.ActorRoleCustomer},
	},
}

func (t transition) allowsRole(role enums.ActorRole) bool {
	for _, candidate := range t.roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func (t transition) allowsSource(status enums.OrderStatus) bool {
	for _, candidate := range t.sources {
		if candidate == status {
			return true
		}
	}
	return false
}
