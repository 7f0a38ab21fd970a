package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// DeliveryAddress is the customer-supplied drop location frozen onto an order.
type DeliveryAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
	State   string `json:"state"`
}

// Complete reports whether every required field is non-blank.
func (a DeliveryAddress) Complete() bool {
	return strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Pincode) != "" &&
		strings.TrimSpace(a.State) != ""
}

// MissingFields lists the blank required fields, for validation details.
func (a DeliveryAddress) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Pincode) == "" {
		missing = append(missing, "pincode")
	}
	if strings.TrimSpace(a.State) == "" {
		missing = append(missing, "state")
	}
	return missing
}

// Value serializes the address to JSON.
func (a *DeliveryAddress) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan decodes JSONB into the address struct.
func (a *DeliveryAddress) Scan(value interface{}) error {
	if value == nil {
		*a = DeliveryAddress{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}
