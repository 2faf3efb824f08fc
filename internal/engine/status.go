package engine

import (
	"context"
	"log"
	"time"

	"volume-core/internal/settings"
	"volume-core/pkg/exchanges/common"
)

// Status is the externally visible engine state.
type Status struct {
	Running       bool              `json:"running"`
	InstanceID    string            `json:"instance_id"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	SessionCycles int               `json:"session_cycles"`
	TradeCount    int               `json:"trade_count"`
	TotalVolume   float64           `json:"total_volume"`
	LastCycleTime time.Time         `json:"last_cycle_time"`
	Balances      []common.Balance  `json:"balances,omitempty"`
	Settings      settings.Settings `json:"settings"`
}

// Status assembles the current engine view. Exchange and ledger lookups are
// best effort; their failures leave the corresponding fields zeroed.
func (c *Controller) Status(ctx context.Context) Status {
	c.mu.Lock()
	s := Status{
		Running:       c.running,
		InstanceID:    c.instanceID,
		SessionCycles: c.sessionCycles,
		LastCycleTime: c.lastCycle,
	}
	if c.running {
		s.UptimeSeconds = time.Since(c.startedAt).Seconds()
	}
	c.mu.Unlock()

	s.Settings = c.store.Snapshot()

	if c.queries != nil {
		if n, err := c.queries.TradeCount(ctx); err == nil {
			s.TradeCount = n
		} else {
			log.Printf("⚠️ status trade count: %v", err)
		}
		if v, err := c.queries.TotalVolume(ctx); err == nil {
			s.TotalVolume = v
		} else {
			log.Printf("⚠️ status total volume: %v", err)
		}
	}

	if balances, err := c.gateway.AccountBalances(ctx); err == nil {
		s.Balances = balances
	} else {
		log.Printf("⚠️ status balances: %v", err)
	}

	return s
}
