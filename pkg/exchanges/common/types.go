package common

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TimeInForce captures TIF semantics.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC" // Good Till Cancelled
	TIFIOC TimeInForce = "IOC" // Immediate Or Cancel
	TIFFOK TimeInForce = "FOK" // Fill Or Kill
)

// OrderStatus mirrors the exchange order lifecycle states.
type OrderStatus string

const (
	StatusNew      OrderStatus = "NEW"
	StatusPartial  OrderStatus = "PARTIALLY_FILLED"
	StatusFilled   OrderStatus = "FILLED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusRejected OrderStatus = "REJECTED"
	StatusExpired  OrderStatus = "EXPIRED"
	StatusUnknown  OrderStatus = "UNKNOWN"
)

// OrderRequest captures an order intent to be sent to the exchange.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Qty         float64
	Price       float64 // required for LIMIT
	TimeInForce TimeInForce
	ClientID    string // optional client order id
}

// OrderAck is the exchange acknowledgement for a submitted order.
type OrderAck struct {
	OrderID  string
	ClientID string
	Status   OrderStatus
}

// OrderState is a point-in-time view of a resting or closed order.
type OrderState struct {
	OrderID     string
	Symbol      string
	Side        Side
	Status      OrderStatus
	Price       float64
	OrigQty     float64
	ExecutedQty float64
}

// Closed reports whether the order can no longer trade.
func (s OrderState) Closed() bool {
	switch s.Status {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// BookTop is the best bid/ask of the order book.
type BookTop struct {
	Bid float64
	Ask float64
}

// Balance represents a single asset balance.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Total returns free plus locked funds.
func (b Balance) Total() float64 { return b.Free + b.Locked }
