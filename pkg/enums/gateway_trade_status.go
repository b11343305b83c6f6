package enums

// GatewayTradeStatus tracks a merchant trade number issued to the gateway.
type GatewayTradeStatus string

const (
	GatewayTradeIssued GatewayTradeStatus = "issued"
	GatewayTradePaid   GatewayTradeStatus = "paid"
	GatewayTradeFailed GatewayTradeStatus = "failed"
)

// String implements fmt.Stringer.
func (s GatewayTradeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known GatewayTradeStatus.
func (s GatewayTradeStatus) IsValid() bool {
	switch s {
	case GatewayTradeIssued, GatewayTradePaid, GatewayTradeFailed:
		return true
	}
	return false
}
