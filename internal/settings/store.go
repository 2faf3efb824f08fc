// Package settings owns the runtime trading parameters: validated updates,
// per-cycle snapshots and persistence across restarts.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"volume-core/pkg/db"
)

// Settings is the full set of tunable trading parameters. Workers read a
// snapshot once per cycle; edits apply from the next cycle on.
type Settings struct {
	MinInterval     int     `yaml:"min_interval" json:"min_interval"`           // seconds between cycles, lower bound
	MaxInterval     int     `yaml:"max_interval" json:"max_interval"`           // seconds between cycles, upper bound
	MinPrice        float64 `yaml:"min_price" json:"min_price"`                 // price band floor
	MaxPrice        float64 `yaml:"max_price" json:"max_price"`                 // price band ceiling
	TradeAmount     float64 `yaml:"trade_amount" json:"trade_amount"`           // base quantity per cycle
	MinQuoteBalance float64 `yaml:"min_quote_balance" json:"min_quote_balance"` // halt below this quote balance
	MinBaseBalance  float64 `yaml:"min_base_balance" json:"min_base_balance"`   // halt below this base balance
}

// Defaults are used when neither the DB nor a settings file has a value.
func Defaults() Settings {
	return Settings{
		MinInterval:     60,
		MaxInterval:     300,
		MinPrice:        0.0001,
		MaxPrice:        0.001,
		TradeAmount:     100,
		MinQuoteBalance: 10,
		MinBaseBalance:  0,
	}
}

var ErrUnknownSetting = errors.New("unknown setting")

// Store guards Settings behind a mutex and mirrors every accepted update
// into the ledger settings table.
type Store struct {
	mu      sync.RWMutex
	current Settings
	queries *db.Queries
}

// NewStore creates a store seeded with defaults.
func NewStore(queries *db.Queries) *Store {
	return &Store{current: Defaults(), queries: queries}
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Load restores persisted values over the defaults. Unparseable stored
// values are logged and skipped.
func (s *Store) Load(ctx context.Context) error {
	if s.queries == nil {
		return nil
	}
	stored, err := s.queries.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range stored {
		if err := s.current.apply(name, value); err != nil {
			log.Printf("skip stored setting %s=%q: %v", name, value, err)
		}
	}
	s.current.normalize()
	return nil
}

// BootstrapFile seeds settings from a YAML file, then persists any key the
// DB does not know yet. DB values win over file values.
func (s *Store) BootstrapFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	fromFile := Defaults()
	if err := yaml.Unmarshal(raw, &fromFile); err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}
	fromFile.normalize()
	if err := fromFile.validate(); err != nil {
		return fmt.Errorf("settings file: %w", err)
	}

	s.mu.Lock()
	s.current = fromFile
	s.mu.Unlock()

	if s.queries == nil {
		return nil
	}
	stored, err := s.queries.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for name, value := range fromFile.asMap() {
		if _, ok := stored[name]; ok {
			continue
		}
		if err := s.queries.SetSetting(ctx, name, value); err != nil {
			return fmt.Errorf("persist setting %s: %w", name, err)
		}
	}
	return s.Load(ctx)
}

// Update validates and applies one named setting, persisting it on success.
// The new value takes effect at the next cycle.
func (s *Store) Update(ctx context.Context, name, value string) (Settings, error) {
	s.mu.Lock()
	next := s.current
	if err := next.apply(name, value); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	next.normalize()
	if err := next.validate(); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	s.current = next
	s.mu.Unlock()

	if s.queries != nil {
		if err := s.queries.SetSetting(ctx, name, value); err != nil {
			return Settings{}, fmt.Errorf("persist setting %s: %w", name, err)
		}
	}
	return next, nil
}

// apply parses value into the named field without validating cross-field rules.
func (st *Settings) apply(name, value string) error {
	switch name {
	case "min_interval", "max_interval":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", name, err)
		}
		if v < 5 {
			return fmt.Errorf("%s must be at least 5 seconds", name)
		}
		if name == "min_interval" {
			st.MinInterval = v
		} else {
			st.MaxInterval = v
		}
	case "min_price", "max_price", "trade_amount", "min_quote_balance", "min_base_balance":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", name, err)
		}
		switch name {
		case "min_price":
			if v <= 0 {
				return errors.New("min_price must be positive")
			}
			st.MinPrice = v
		case "max_price":
			if v <= 0 {
				return errors.New("max_price must be positive")
			}
			st.MaxPrice = v
		case "trade_amount":
			if v <= 0 {
				return errors.New("trade_amount must be positive")
			}
			st.TradeAmount = v
		case "min_quote_balance":
			if v < 0 {
				return errors.New("min_quote_balance must not be negative")
			}
			st.MinQuoteBalance = v
		case "min_base_balance":
			if v < 0 {
				return errors.New("min_base_balance must not be negative")
			}
			st.MinBaseBalance = v
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	return nil
}

// normalize swaps inverted ranges so min <= max always holds.
func (st *Settings) normalize() {
	if st.MinInterval > st.MaxInterval {
		st.MinInterval, st.MaxInterval = st.MaxInterval, st.MinInterval
	}
	if st.MinPrice > st.MaxPrice {
		st.MinPrice, st.MaxPrice = st.MaxPrice, st.MinPrice
	}
}

func (st Settings) validate() error {
	if st.MinInterval < 5 {
		return errors.New("min_interval must be at least 5 seconds")
	}
	if st.MinPrice <= 0 || st.MaxPrice <= 0 {
		return errors.New("price band must be positive")
	}
	if st.TradeAmount <= 0 {
		return errors.New("trade_amount must be positive")
	}
	if st.MinQuoteBalance < 0 || st.MinBaseBalance < 0 {
		return errors.New("balance floors must not be negative")
	}
	return nil
}

func (st Settings) asMap() map[string]string {
	return map[string]string{
		"min_interval":      strconv.Itoa(st.MinInterval),
		"max_interval":      strconv.Itoa(st.MaxInterval),
		"min_price":         strconv.FormatFloat(st.MinPrice, 'f', -1, 64),
		"max_price":         strconv.FormatFloat(st.MaxPrice, 'f', -1, 64),
		"trade_amount":      strconv.FormatFloat(st.TradeAmount, 'f', -1, 64),
		"min_quote_balance": strconv.FormatFloat(st.MinQuoteBalance, 'f', -1, 64),
		"min_base_balance":  strconv.FormatFloat(st.MinBaseBalance, 'f', -1, 64),
	}
}
