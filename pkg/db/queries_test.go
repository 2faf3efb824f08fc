package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Queries {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database.Queries()
}

func TestTradeLedger(t *testing.T) {
	q := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	trades := []Trade{
		{Timestamp: base, Symbol: "ABCUSDT", Price: 0.00012, Quantity: 100, FilledQty: 100, FillPercent: 100, BuyFilled: true, SellFilled: true},
		{Timestamp: base.Add(time.Minute), Symbol: "ABCUSDT", Price: 0.00013, Quantity: 100, FilledQty: 60, FillPercent: 60, BuyFilled: true, SellFilled: false},
		{Timestamp: base.Add(2 * time.Minute), Symbol: "ABCUSDT", Price: 0.00011, Quantity: 50, FilledQty: 0, FillPercent: 0},
	}
	for _, tr := range trades {
		if _, err := q.AppendTrade(ctx, tr); err != nil {
			t.Fatalf("AppendTrade: %v", err)
		}
	}

	t.Run("RecentTrades most recent first", func(t *testing.T) {
		got, err := q.RecentTrades(ctx, 10)
		if err != nil {
			t.Fatalf("RecentTrades: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		if got[0].FilledQty != 0 || got[2].FilledQty != 100 {
			t.Errorf("unexpected order: %+v", got)
		}
	})

	t.Run("RecentFilledTrades filters partial cycles", func(t *testing.T) {
		got, err := q.RecentFilledTrades(ctx, 10)
		if err != nil {
			t.Fatalf("RecentFilledTrades: %v", err)
		}
		if len(got) != 1 || !got[0].BuyFilled || !got[0].SellFilled {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("TotalVolume sums filled quantity", func(t *testing.T) {
		v, err := q.TotalVolume(ctx)
		if err != nil {
			t.Fatalf("TotalVolume: %v", err)
		}
		if v != 160 {
			t.Errorf("volume = %v, want 160", v)
		}
	})

	t.Run("TradeStats", func(t *testing.T) {
		s, err := q.TradeStats(ctx)
		if err != nil {
			t.Fatalf("TradeStats: %v", err)
		}
		if s.Count != 3 || s.FullFills != 1 || s.BaseVolume != 160 {
			t.Errorf("stats = %+v", s)
		}
	})

	t.Run("PruneTrades removes old rows", func(t *testing.T) {
		n, err := q.PruneTrades(ctx, 7)
		if err != nil {
			t.Fatalf("PruneTrades: %v", err)
		}
		if n != 3 {
			t.Errorf("pruned = %d, want 3 (rows older than a week)", n)
		}
	})
}

func TestSettingsStore(t *testing.T) {
	q := newTestDB(t)
	ctx := context.Background()

	if _, err := q.GetSetting(ctx, "trade_amount"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := q.SetSetting(ctx, "trade_amount", "100"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := q.SetSetting(ctx, "trade_amount", "250"); err != nil {
		t.Fatalf("SetSetting upsert: %v", err)
	}

	v, err := q.GetSetting(ctx, "trade_amount")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "250" {
		t.Errorf("value = %q, want 250", v)
	}

	if err := q.SetSetting(ctx, "min_price", "0.0001"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	all, err := q.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if len(all) != 2 || all["min_price"] != "0.0001" {
		t.Errorf("settings = %v", all)
	}

	if err := q.DeleteSetting(ctx, "min_price"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	if _, err := q.GetSetting(ctx, "min_price"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUserQueries(t *testing.T) {
	q := newTestDB(t)
	ctx := context.Background()

	u, err := q.CreateUser(ctx, "ops@example.com", "hash123")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("empty user id")
	}

	byEmail, err := q.GetUserByEmail(ctx, "ops@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != u.ID || byEmail.PasswordHash != "hash123" {
		t.Errorf("got %+v", byEmail)
	}

	if _, err := q.GetUserByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err := q.CreateUser(ctx, "ops@example.com", "other"); err == nil {
		t.Error("duplicate email should fail")
	}
}
