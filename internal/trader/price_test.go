package trader

import (
	"context"
	"errors"
	"testing"

	"volume-core/internal/settings"
	"volume-core/pkg/exchanges/common"
)

func bandSettings(lo, hi float64) settings.Settings {
	st := settings.Defaults()
	st.MinPrice = lo
	st.MaxPrice = hi
	return st
}

func TestPickPriceInsideSpread(t *testing.T) {
	top := common.BookTop{Bid: 0.00012, Ask: 0.000121}
	st := bandSettings(0.0001, 0.001)

	for _, r := range []float64{0, 0.25, 0.5, 0.99} {
		p := pickPrice(top, st, func() float64 { return r })
		if p < top.Bid || p > top.Ask {
			t.Errorf("rnd=%v: price %v outside [bid, ask]", r, p)
		}
	}
}

func TestPickPriceClampedToBand(t *testing.T) {
	// Spread sits above the allowed band.
	top := common.BookTop{Bid: 0.00012, Ask: 0.00013}
	st := bandSettings(0.0001, 0.000115)

	p := pickPrice(top, st, func() float64 { return 0.5 })
	if p != st.MaxPrice {
		t.Errorf("price = %v, want clamp to %v", p, st.MaxPrice)
	}

	// Spread below the band clamps up to the floor.
	top = common.BookTop{Bid: 0.00001, Ask: 0.00002}
	st = bandSettings(0.0001, 0.001)
	p = pickPrice(top, st, func() float64 { return 0.5 })
	if p != st.MinPrice {
		t.Errorf("price = %v, want clamp to %v", p, st.MinPrice)
	}
}

func TestDecidePriceFallback(t *testing.T) {
	ex := newFakeExchange()
	ex.topErr = errors.New("quote down")
	tr := newTestTrader(ex)

	st := bandSettings(0.0001, 0.001)
	p := tr.decidePrice(context.Background(), st)
	if p != 0.00055 {
		t.Errorf("fallback price = %v, want band midpoint 0.00055", p)
	}
}

func TestRound8(t *testing.T) {
	if got := round8(0.123456789123); got != 0.12345679 {
		t.Errorf("round8 = %v", got)
	}
}
