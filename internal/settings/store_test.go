package settings

import (
	"context"
	"errors"
	"testing"

	"volume-core/pkg/db"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return NewStore(database.Queries())
}

func TestUpdateValidation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	t.Run("interval floor", func(t *testing.T) {
		if _, err := s.Update(ctx, "min_interval", "3"); err == nil {
			t.Error("expected rejection below 5 seconds")
		}
	})

	t.Run("positive amount", func(t *testing.T) {
		if _, err := s.Update(ctx, "trade_amount", "-1"); err == nil {
			t.Error("expected rejection of negative amount")
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := s.Update(ctx, "leverage", "10")
		if !errors.Is(err, ErrUnknownSetting) {
			t.Errorf("err = %v, want ErrUnknownSetting", err)
		}
	})

	t.Run("valid update persists", func(t *testing.T) {
		got, err := s.Update(ctx, "trade_amount", "250")
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.TradeAmount != 250 {
			t.Errorf("TradeAmount = %v", got.TradeAmount)
		}

		fresh := NewStore(s.queries)
		if err := fresh.Load(ctx); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if fresh.Snapshot().TradeAmount != 250 {
			t.Errorf("persisted TradeAmount = %v", fresh.Snapshot().TradeAmount)
		}
	})
}

func TestRangeAutoSwap(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.Update(ctx, "min_price", "0.01"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := s.Snapshot()
	// Default max is 0.001, so the band must have been swapped.
	if got.MinPrice > got.MaxPrice {
		t.Errorf("band inverted: min %v max %v", got.MinPrice, got.MaxPrice)
	}
	if got.MaxPrice != 0.01 {
		t.Errorf("MaxPrice = %v, want 0.01", got.MaxPrice)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := newStore(t)
	snap := s.Snapshot()
	if _, err := s.Update(context.Background(), "trade_amount", "999"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if snap.TradeAmount == 999 {
		t.Error("snapshot must not observe later updates")
	}
}
