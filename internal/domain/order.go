package domain

// OrderType represents the exchange order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// Order describes one order submission. On this exchange the side is implied
// by the sign of the quantity (negative sells).
type Order struct {
	Symbol   string
	Quantity int
	Price    float64 // Zero for market orders
	Type     OrderType
}
