package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ShippingInfo is the delivery contact stored on an order as JSON.
type ShippingInfo struct {
	Name       string  `json:"name" validate:"required,max=120"`
	Phone      string  `json:"phone" validate:"required,max=32"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=120"`
	Region     string  `json:"region,omitempty" validate:"max=120"`
	PostalCode string  `json:"postal_code,omitempty" validate:"max=20"`
	Country    string  `json:"country" validate:"required,len=2"`
}

// Value serializes the shipping info to JSON.
func (s ShippingInfo) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan decodes a JSON column into the struct.
func (s *ShippingInfo) Scan(value interface{}) error {
	if value == nil {
		*s = ShippingInfo{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, s)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
