package engine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"volume-core/internal/notify"
	"volume-core/internal/settings"
	"volume-core/internal/trader"
	"volume-core/pkg/exchanges/common"
)

type fakeRunner struct {
	cycleCalls int32
	active     int32
	maxActive  int32
	cycleErr     error
	balanceErr   error
	balanceDelay time.Duration
}

func (r *fakeRunner) RunCycle(ctx context.Context, st settings.Settings) (trader.CycleResult, error) {
	n := atomic.AddInt32(&r.active, 1)
	for {
		cur := atomic.LoadInt32(&r.maxActive)
		if n <= cur || atomic.CompareAndSwapInt32(&r.maxActive, cur, n) {
			break
		}
	}
	atomic.AddInt32(&r.cycleCalls, 1)
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&r.active, -1)
	if r.cycleErr != nil {
		return trader.CycleResult{}, r.cycleErr
	}
	return trader.CycleResult{Price: 0.00012, Quantity: 100, FilledQty: 100, FillPercent: 100}, nil
}

func (r *fakeRunner) CheckBalances(ctx context.Context, st settings.Settings) error {
	if r.balanceDelay > 0 {
		time.Sleep(r.balanceDelay)
	}
	return r.balanceErr
}

type fakeGateway struct {
	cancelAll int32
}

func (g *fakeGateway) CancelAllOrders(ctx context.Context, symbol string) error {
	atomic.AddInt32(&g.cancelAll, 1)
	return nil
}

func (g *fakeGateway) AccountBalances(ctx context.Context) ([]common.Balance, error) {
	return []common.Balance{{Asset: "USDT", Free: 1000}}, nil
}

func newTestController(runner *fakeRunner, gw *fakeGateway, n notify.Notifier) *Controller {
	return New(runner, gw, settings.NewStore(nil), nil, nil, n, nil, "ABCUSDT")
}

func TestDoubleStartAndStop(t *testing.T) {
	c := newTestController(&fakeRunner{}, &fakeGateway{}, nil)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(ctx); err != ErrAlreadyRunning {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(ctx); err != ErrNotRunning {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestConcurrentStartSingleWorker(t *testing.T) {
	runner := &fakeRunner{}
	c := newTestController(runner, &fakeGateway{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Start(ctx); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successful starts = %d, want 1", successes)
	}

	// Give the worker time to run at least one cycle.
	time.Sleep(50 * time.Millisecond)
	if max := atomic.LoadInt32(&runner.maxActive); max > 1 {
		t.Errorf("concurrent cycles = %d, want at most 1", max)
	}

	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestControlCallsNotBlockedByStart(t *testing.T) {
	runner := &fakeRunner{balanceDelay: 300 * time.Millisecond}
	c := newTestController(runner, &fakeGateway{}, nil)

	started := make(chan error, 1)
	go func() { started <- c.Start(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	begin := time.Now()
	c.Running()
	if elapsed := time.Since(begin); elapsed > 50*time.Millisecond {
		t.Errorf("Running() blocked for %v during the start pre-check", elapsed)
	}

	if err := <-started; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopInterruptsSleep(t *testing.T) {
	runner := &fakeRunner{}
	gw := &fakeGateway{}
	c := newTestController(runner, gw, nil)
	ctx := context.Background()

	// Default intervals are 60-300s, so after the first cycle the worker
	// is parked in its sleep.
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	begin := time.Now()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Stop took %v, want under 1s", elapsed)
	}

	calls := atomic.LoadInt32(&runner.cycleCalls)
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&runner.cycleCalls); got != calls {
		t.Errorf("worker still cycling after stop: %d -> %d", calls, got)
	}
	if n := atomic.LoadInt32(&gw.cancelAll); n != 1 {
		t.Errorf("cancel-all calls = %d, want exactly 1", n)
	}
	if c.Running() {
		t.Error("controller still reports running")
	}
}

func TestBalanceHalt(t *testing.T) {
	runner := &fakeRunner{cycleErr: trader.ErrBalanceLow}
	var mu sync.Mutex
	var halts int
	notifier := notify.Func(func(m string) {
		if strings.Contains(m, "halted") {
			mu.Lock()
			halts++
			mu.Unlock()
		}
	})
	c := newTestController(runner, &fakeGateway{}, notifier)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for c.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Running() {
		t.Fatal("engine did not halt on low balance")
	}

	mu.Lock()
	got := halts
	mu.Unlock()
	if got != 1 {
		t.Errorf("halt notifications = %d, want 1", got)
	}

	// Halt counts as stopped, so Stop is a no-op.
	if err := c.Stop(context.Background()); err != ErrNotRunning {
		t.Errorf("Stop after halt = %v, want ErrNotRunning", err)
	}
}

func TestStartRefusedOnLowBalance(t *testing.T) {
	runner := &fakeRunner{balanceErr: trader.ErrBalanceLow}
	c := newTestController(runner, &fakeGateway{}, nil)

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected start refusal")
	}
	if c.Running() {
		t.Error("controller running after refused start")
	}
	if n := atomic.LoadInt32(&runner.cycleCalls); n != 0 {
		t.Errorf("cycles ran = %d, want 0", n)
	}
}

func TestUpdateSetting(t *testing.T) {
	c := newTestController(&fakeRunner{}, &fakeGateway{}, nil)

	got, err := c.UpdateSetting(context.Background(), "trade_amount", "500")
	if err != nil {
		t.Fatalf("UpdateSetting: %v", err)
	}
	if got.TradeAmount != 500 {
		t.Errorf("TradeAmount = %v", got.TradeAmount)
	}

	if _, err := c.UpdateSetting(context.Background(), "min_interval", "1"); err == nil {
		t.Error("expected validation error")
	}
}
