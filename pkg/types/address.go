package types

import "strings"

// ShippingAddress mirrors the storefront checkout form. Field names stay
// camelCase on the wire because the web client submits them that way.
type ShippingAddress struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// CountryOrDefault returns the ISO2 country code, defaulting to Egypt.
func (a ShippingAddress) CountryOrDefault() string {
	c := strings.ToUpper(strings.TrimSpace(a.Country))
	if c == "" {
		return "EG"
	}
	return c
}
