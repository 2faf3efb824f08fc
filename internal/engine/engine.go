// Package engine owns the run/stop lifecycle of the trading loop: a single
// worker goroutine runs cycles on a randomized schedule until stopped.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"

	"volume-core/internal/events"
	"volume-core/internal/monitor"
	"volume-core/internal/notify"
	"volume-core/internal/settings"
	"volume-core/internal/trader"
	"volume-core/pkg/db"
	"volume-core/pkg/exchanges/common"
)

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")
)

// CycleRunner executes trade cycles. Implemented by trader.Trader.
type CycleRunner interface {
	RunCycle(ctx context.Context, st settings.Settings) (trader.CycleResult, error)
	CheckBalances(ctx context.Context, st settings.Settings) error
}

// Gateway is the slice of the exchange client the controller needs directly.
type Gateway interface {
	CancelAllOrders(ctx context.Context, symbol string) error
	AccountBalances(ctx context.Context) ([]common.Balance, error)
}

// Controller serializes start/stop and guarantees at most one worker.
type Controller struct {
	runner   CycleRunner
	gateway  Gateway
	store    *settings.Store
	queries  *db.Queries
	bus      *events.Bus
	notifier notify.Notifier
	metrics  *monitor.SystemMetrics
	symbol   string

	instanceID string
	startedAt  time.Time

	mu            sync.Mutex
	running       bool
	stopCh        chan struct{}
	cancelWorker  context.CancelFunc
	sessionCycles int
	lastCycle     time.Time
}

// New creates a stopped controller.
func New(runner CycleRunner, gateway Gateway, store *settings.Store, queries *db.Queries,
	bus *events.Bus, notifier notify.Notifier, metrics *monitor.SystemMetrics, symbol string) *Controller {

	id, err := machineid.ProtectedID("volume-core")
	if err != nil {
		id = "unknown"
	}
	return &Controller{
		runner:     runner,
		gateway:    gateway,
		store:      store,
		queries:    queries,
		bus:        bus,
		notifier:   notifier,
		metrics:    metrics,
		symbol:     symbol,
		instanceID: id,
	}
}

// Start launches the worker. Starting a running engine is a reported no-op,
// and a balance floor violation refuses the start outright.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.mu.Unlock()

	// The pre-check talks to the exchange and must not hold the state lock;
	// Stop, Running and Status stay responsive while it runs.
	if err := c.runner.CheckBalances(ctx, c.store.Snapshot()); err != nil {
		return fmt.Errorf("start refused: %w", err)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	workerCtx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.stopCh = make(chan struct{})
	c.cancelWorker = cancel
	c.startedAt = time.Now()
	stopCh := c.stopCh
	c.mu.Unlock()

	go c.worker(workerCtx, stopCh)

	log.Printf("🚀 engine started for %s", c.symbol)
	c.publish(events.EventEngineStarted, c.symbol)
	c.notify("Engine started for " + c.symbol)
	return nil
}

// Stop halts the schedule and cancels any resting orders, best effort.
// Stopping a stopped engine is a reported no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.running = false
	close(c.stopCh)
	c.cancelWorker()
	c.mu.Unlock()

	if err := c.gateway.CancelAllOrders(ctx, c.symbol); err != nil {
		log.Printf("⚠️ cancel all orders on stop: %v", err)
	}

	log.Printf("🛑 engine stopped for %s", c.symbol)
	c.publish(events.EventEngineStopped, c.symbol)
	c.notify("Engine stopped for " + c.symbol)
	return nil
}

// Running reports whether the worker is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Settings returns the current settings snapshot.
func (c *Controller) Settings() settings.Settings {
	return c.store.Snapshot()
}

// UpdateSetting validates and applies one runtime setting. The new value
// takes effect from the next cycle.
func (c *Controller) UpdateSetting(ctx context.Context, name, value string) (settings.Settings, error) {
	updated, err := c.store.Update(ctx, name, value)
	if err != nil {
		return settings.Settings{}, err
	}
	c.publish(events.EventSettingUpdated, map[string]string{"name": name, "value": value})
	return updated, nil
}

// worker is the single schedule loop. It exits when stopCh closes or a
// balance floor violation halts the engine from inside.
func (c *Controller) worker(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		st := c.store.Snapshot()
		if halted := c.runOnce(ctx, st); halted {
			return
		}

		select {
		case <-stopCh:
			return
		case <-time.After(cycleDelay(st)):
		}
	}
}

// runOnce executes one cycle and reports whether the engine halted itself.
func (c *Controller) runOnce(ctx context.Context, st settings.Settings) bool {
	start := time.Now()
	res, err := c.runner.RunCycle(ctx, st)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, trader.ErrBalanceLow) {
			c.halt(err)
			return true
		}
		if ctx.Err() != nil {
			// Shutdown raced the cycle; the stop path reports state.
			return true
		}
		log.Printf("⚠️ cycle failed: %v", err)
		if c.metrics != nil {
			c.metrics.RecordCycle(elapsed, false)
		}
		c.publish(events.EventCycleFailed, err.Error())
		return false
	}

	c.mu.Lock()
	c.sessionCycles++
	c.lastCycle = time.Now()
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordCycle(elapsed, true)
	}
	log.Printf("✅ cycle done: price %.8f filled %.4f (%.1f%%)", res.Price, res.FilledQty, res.FillPercent)
	return false
}

// halt transitions to Stopped from inside the worker.
func (c *Controller) halt(cause error) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.cancelWorker()
	c.mu.Unlock()

	log.Printf("🛑 engine halted: %v", cause)
	c.publish(events.EventBalanceAlert, cause.Error())
	c.publish(events.EventEngineStopped, c.symbol)
	c.notify("Engine halted: " + cause.Error())
}

func (c *Controller) publish(e events.Event, payload any) {
	if c.bus != nil {
		c.bus.Publish(e, payload)
	}
}

func (c *Controller) notify(msg string) {
	if c.notifier != nil {
		c.notifier.Notify(msg)
	}
}

// cycleDelay draws the next pause uniformly from the configured interval.
func cycleDelay(st settings.Settings) time.Duration {
	lo, hi := st.MinInterval, st.MaxInterval
	if hi <= lo {
		return time.Duration(lo) * time.Second
	}
	sec := float64(lo) + rand.Float64()*float64(hi-lo)
	return time.Duration(sec * float64(time.Second))
}
