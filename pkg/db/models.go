package db

import "time"

// Trade is one persisted self-trade cycle outcome.
type Trade struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	FilledQty   float64   `json:"filled_qty"`
	FillPercent float64   `json:"fill_percent"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	BuyFilled   bool      `json:"buy_filled"`
	SellFilled  bool      `json:"sell_filled"`
	Data        string    `json:"data,omitempty"` // raw JSON snapshot of the cycle
	CreatedAt   time.Time `json:"created_at"`
}

// TradeStats aggregates the trade history.
type TradeStats struct {
	Count          int     `json:"count"`
	FullFills      int     `json:"full_fills"`
	BaseVolume     float64 `json:"base_volume"`
	QuoteVolume    float64 `json:"quote_volume"`
	AvgFillPercent float64 `json:"avg_fill_percent"`
}

// User is an API account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
