package trader

import (
	"context"
	"log"
	"math"
	"math/rand"

	"volume-core/internal/settings"
	"volume-core/pkg/exchanges/common"
)

// decidePrice picks the cycle's limit price from the live book. When the
// spread lies inside the configured band the price is uniform in
// [bid, ask]; otherwise it sits in the middle 40% of the spread and is
// clamped into the band. A failed quote falls back to the band midpoint.
func (t *Trader) decidePrice(ctx context.Context, st settings.Settings) float64 {
	top, err := t.Exchange.BookTop(ctx, t.Symbol)
	if err != nil {
		fallback := clamp((st.MinPrice+st.MaxPrice)/2, st.MinPrice, st.MaxPrice)
		log.Printf("⚠️ book quote failed, using band midpoint %.8f: %v", fallback, err)
		return round8(fallback)
	}
	return round8(pickPrice(top, st, t.randUnit))
}

func pickPrice(top common.BookTop, st settings.Settings, rnd func() float64) float64 {
	spread := top.Ask - top.Bid
	if top.Bid >= st.MinPrice && top.Ask <= st.MaxPrice && spread >= 0 {
		return top.Bid + rnd()*spread
	}
	price := top.Bid + (0.3+rnd()*0.4)*spread
	return clamp(price, st.MinPrice, st.MaxPrice)
}

func (t *Trader) randUnit() float64 {
	if t.randFloat != nil {
		return t.randFloat()
	}
	return rand.Float64()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
