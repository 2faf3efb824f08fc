// Package trader executes one paired-order trade cycle: balance guard,
// price decision, dual limit order submission, settlement wait and
// per-leg reconciliation.
package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"volume-core/internal/events"
	"volume-core/internal/notify"
	"volume-core/internal/settings"
	"volume-core/pkg/db"
	"volume-core/pkg/exchanges/common"
)

// ErrBalanceLow signals that an asset balance dropped below its configured
// floor. It is the only error that halts the engine schedule.
var ErrBalanceLow = errors.New("balance below configured floor")

// Exchange is the gateway surface the trader needs.
type Exchange interface {
	CreateOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	OrderStatus(ctx context.Context, symbol, orderID string) (common.OrderState, error)
	BookTop(ctx context.Context, symbol string) (common.BookTop, error)
	AssetBalance(ctx context.Context, asset string) (common.Balance, error)
}

// Ledger persists completed cycles.
type Ledger interface {
	AppendTrade(ctx context.Context, t db.Trade) (string, error)
}

// CycleResult is the immutable outcome of one trade cycle.
type CycleResult struct {
	Timestamp   time.Time `json:"timestamp"`
	Price       float64   `json:"price"`
	Quantity    float64   `json:"quantity"`
	FilledQty   float64   `json:"filled_qty"`
	FillPercent float64   `json:"fill_percent"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	BuyFilled   bool      `json:"buy_filled"`
	SellFilled  bool      `json:"sell_filled"`
}

// orderHandle tracks one submitted leg within a cycle.
type orderHandle struct {
	id    string
	side  common.Side
	price float64
	qty   float64
}

// Trader runs trade cycles against one symbol.
type Trader struct {
	Exchange   Exchange
	Ledger     Ledger
	Notifier   notify.Notifier
	Bus        *events.Bus
	Symbol     string
	BaseAsset  string
	QuoteAsset string

	// SettleDelay is how long orders rest before reconciliation.
	SettleDelay time.Duration

	// randFloat returns a value in [0,1); replaced in tests.
	randFloat func() float64
}

// New creates a trader for the given symbol.
func New(ex Exchange, ledger Ledger, notifier notify.Notifier, bus *events.Bus, symbol, baseAsset, quoteAsset string) *Trader {
	return &Trader{
		Exchange:    ex,
		Ledger:      ledger,
		Notifier:    notifier,
		Bus:         bus,
		Symbol:      symbol,
		BaseAsset:   baseAsset,
		QuoteAsset:  quoteAsset,
		SettleDelay: 10 * time.Second,
	}
}

// CheckBalances verifies both asset floors. Returns ErrBalanceLow (wrapped
// with the offending asset) when a floor is violated.
func (t *Trader) CheckBalances(ctx context.Context, st settings.Settings) error {
	quote, err := t.Exchange.AssetBalance(ctx, t.QuoteAsset)
	if err != nil {
		return fmt.Errorf("query %s balance: %w", t.QuoteAsset, err)
	}
	if quote.Free < st.MinQuoteBalance {
		return fmt.Errorf("%w: %s %.8f < %.8f", ErrBalanceLow, t.QuoteAsset, quote.Free, st.MinQuoteBalance)
	}
	base, err := t.Exchange.AssetBalance(ctx, t.BaseAsset)
	if err != nil {
		return fmt.Errorf("query %s balance: %w", t.BaseAsset, err)
	}
	if base.Free < st.MinBaseBalance {
		return fmt.Errorf("%w: %s %.8f < %.8f", ErrBalanceLow, t.BaseAsset, base.Free, st.MinBaseBalance)
	}
	return nil
}

// RunCycle executes one full paired-order cycle with the given settings
// snapshot. Every order it opens is filled or cancelled before it returns.
// Only ErrBalanceLow should stop the caller's schedule; any other error
// means this cycle failed and the next one may proceed.
func (t *Trader) RunCycle(ctx context.Context, st settings.Settings) (CycleResult, error) {
	if err := t.CheckBalances(ctx, st); err != nil {
		return CycleResult{}, err
	}

	price := t.decidePrice(ctx, st)
	qty := st.TradeAmount

	buy, err := t.submit(ctx, common.SideBuy, price, qty)
	if err != nil {
		return CycleResult{}, fmt.Errorf("submit buy: %w", err)
	}
	sell, err := t.submit(ctx, common.SideSell, price, qty)
	if err != nil {
		// The buy leg must not rest alone, even when the failure came
		// from the caller shutting down.
		t.cancelQuiet(context.WithoutCancel(ctx), buy)
		return CycleResult{}, fmt.Errorf("submit sell: %w", err)
	}

	t.waitSettle(ctx)

	// Reconciliation must finish even when the caller is shutting down.
	reconCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	buyFilled, buyQty := t.reconcileLeg(reconCtx, buy)
	sellFilled, sellQty := t.reconcileLeg(reconCtx, sell)

	filled := min(buyQty, sellQty)
	var pct float64
	if qty > 0 {
		pct = filled / qty * 100
	}

	result := CycleResult{
		Timestamp:   time.Now().UTC(),
		Price:       price,
		Quantity:    qty,
		FilledQty:   filled,
		FillPercent: pct,
		BuyOrderID:  buy.id,
		SellOrderID: sell.id,
		BuyFilled:   buyFilled,
		SellFilled:  sellFilled,
	}

	if err := t.record(reconCtx, result); err != nil {
		return result, err
	}

	t.announce(result)
	if t.Bus != nil {
		t.Bus.Publish(events.EventCycleCompleted, result)
	}
	return result, nil
}

func (t *Trader) submit(ctx context.Context, side common.Side, price, qty float64) (orderHandle, error) {
	ack, err := t.Exchange.CreateOrder(ctx, common.OrderRequest{
		Symbol: t.Symbol,
		Side:   side,
		Type:   common.OrderTypeLimit,
		Qty:    qty,
		Price:  price,
	})
	if err != nil {
		return orderHandle{}, err
	}
	return orderHandle{id: ack.OrderID, side: side, price: price, qty: qty}, nil
}

// reconcileLeg resolves one leg to a terminal state. A fully filled order
// is recorded as-is; anything else is cancelled and its partial fill kept.
// When even the status query fails the order is cancelled and counted as
// zero fill, never left resting.
func (t *Trader) reconcileLeg(ctx context.Context, h orderHandle) (filled bool, qty float64) {
	state, err := t.Exchange.OrderStatus(ctx, t.Symbol, h.id)
	if err != nil {
		log.Printf("⚠️ %s order %s status unknown, cancelling: %v", h.side, h.id, err)
		t.cancelQuiet(ctx, h)
		return false, 0
	}
	if state.Status == common.StatusFilled {
		return true, state.ExecutedQty
	}
	if !state.Closed() {
		t.cancelQuiet(ctx, h)
	}
	return false, state.ExecutedQty
}

func (t *Trader) cancelQuiet(ctx context.Context, h orderHandle) {
	if h.id == "" {
		return
	}
	if err := t.Exchange.CancelOrder(ctx, t.Symbol, h.id); err != nil {
		log.Printf("⚠️ cancel %s order %s: %v", h.side, h.id, err)
	}
}

func (t *Trader) waitSettle(ctx context.Context) {
	if t.SettleDelay <= 0 {
		return
	}
	timer := time.NewTimer(t.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (t *Trader) record(ctx context.Context, r CycleResult) error {
	if t.Ledger == nil {
		return nil
	}
	blob, _ := json.Marshal(r)
	_, err := t.Ledger.AppendTrade(ctx, db.Trade{
		Timestamp:   r.Timestamp,
		Symbol:      t.Symbol,
		Price:       r.Price,
		Quantity:    r.Quantity,
		FilledQty:   r.FilledQty,
		FillPercent: r.FillPercent,
		BuyOrderID:  r.BuyOrderID,
		SellOrderID: r.SellOrderID,
		BuyFilled:   r.BuyFilled,
		SellFilled:  r.SellFilled,
		Data:        string(blob),
	})
	if err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}

func (t *Trader) announce(r CycleResult) {
	if t.Notifier == nil {
		return
	}
	t.Notifier.Notify(fmt.Sprintf(
		"Cycle %s: price %.8f, requested %.4f, filled %.4f (%.1f%%), buy %s, sell %s",
		t.Symbol, r.Price, r.Quantity, r.FilledQty, r.FillPercent,
		legStatus(r.BuyFilled), legStatus(r.SellFilled)))
}

func legStatus(filled bool) string {
	if filled {
		return "filled"
	}
	return "partial/cancelled"
}
