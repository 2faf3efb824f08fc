// Package db persists trade cycle results, runtime settings and API users.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// Queries provides typed access to the trade ledger.
type Queries struct {
	db *sql.DB
}

// NewQueries creates a new Queries instance.
func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// ----------------------------------------
// Trade Queries
// ----------------------------------------

// AppendTrade records one completed cycle. The row is immutable once written.
func (q *Queries) AppendTrade(ctx context.Context, t Trade) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, symbol, price, quantity, filled_qty, fill_percent,
		                    buy_order_id, sell_order_id, buy_filled, sell_filled, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Timestamp, t.Symbol, t.Price, t.Quantity, t.FilledQty, t.FillPercent,
		t.BuyOrderID, t.SellOrderID, boolToInt(t.BuyFilled), boolToInt(t.SellFilled), t.Data)
	if err != nil {
		return "", fmt.Errorf("insert trade: %w", err)
	}
	return t.ID, nil
}

// RecentTrades returns the latest trades, most recent first.
func (q *Queries) RecentTrades(ctx context.Context, limit int) ([]Trade, error) {
	return q.queryTrades(ctx, `
		SELECT id, timestamp, symbol, price, quantity, filled_qty, fill_percent,
		       COALESCE(buy_order_id, ''), COALESCE(sell_order_id, ''),
		       buy_filled, sell_filled, COALESCE(data, ''), created_at
		FROM trades
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
}

// RecentFilledTrades returns the latest trades where both legs filled completely.
func (q *Queries) RecentFilledTrades(ctx context.Context, limit int) ([]Trade, error) {
	return q.queryTrades(ctx, `
		SELECT id, timestamp, symbol, price, quantity, filled_qty, fill_percent,
		       COALESCE(buy_order_id, ''), COALESCE(sell_order_id, ''),
		       buy_filled, sell_filled, COALESCE(data, ''), created_at
		FROM trades
		WHERE buy_filled = 1 AND sell_filled = 1
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
}

// TradeCount returns the number of recorded cycles.
func (q *Queries) TradeCount(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n)
	return n, err
}

// TotalVolume returns cumulative filled base volume.
func (q *Queries) TotalVolume(ctx context.Context) (float64, error) {
	var v float64
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(filled_qty), 0) FROM trades`).Scan(&v)
	return v, err
}

// TradeStats aggregates counts and volumes over the full history.
func (q *Queries) TradeStats(ctx context.Context) (TradeStats, error) {
	var s TradeStats
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(buy_filled * sell_filled), 0),
		       COALESCE(SUM(filled_qty), 0),
		       COALESCE(SUM(filled_qty * price), 0),
		       COALESCE(AVG(fill_percent), 0)
		FROM trades
	`).Scan(&s.Count, &s.FullFills, &s.BaseVolume, &s.QuoteVolume, &s.AvgFillPercent)
	if err != nil {
		return TradeStats{}, fmt.Errorf("trade stats: %w", err)
	}
	return s, nil
}

// PruneTrades removes rows older than the retention window and returns
// how many were deleted.
func (q *Queries) PruneTrades(ctx context.Context, retainDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retainDays)
	res, err := q.db.ExecContext(ctx, `DELETE FROM trades WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune trades: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) queryTrades(ctx context.Context, query string, args ...any) ([]Trade, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var (
			t                     Trade
			buyFilled, sellFilled int
		)
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Symbol, &t.Price, &t.Quantity, &t.FilledQty,
			&t.FillPercent, &t.BuyOrderID, &t.SellOrderID, &buyFilled, &sellFilled, &t.Data, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.BuyFilled = buyFilled == 1
		t.SellFilled = sellFilled == 1
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ----------------------------------------
// Settings Queries
// ----------------------------------------

// SetSetting upserts one key/value pair.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// GetSetting returns the stored value or ErrNotFound.
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// DeleteSetting removes one key; missing keys are not an error.
func (q *Queries) DeleteSetting(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// LoadSettings returns all stored key/value pairs.
func (q *Queries) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ----------------------------------------
// User Queries
// ----------------------------------------

// CreateUser inserts a new API account.
func (q *Queries) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u := User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks up an account by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// GetUserByID looks up an account by id.
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
