package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/merakiwear/meraki-backend/pkg/config"
)

// ShippingFee applies the configured policy to an order subtotal.
func ShippingFee(cfg config.ShippingConfig, subtotal decimal.Decimal) decimal.Decimal {
	switch cfg.Policy {
	case config.ShippingPolicyThreshold:
		if subtotal.GreaterThanOrEqual(cfg.FreeThreshold) {
			return decimal.Zero
		}
		return cfg.FlatFee
	default:
		return cfg.FlatFee
	}
}
