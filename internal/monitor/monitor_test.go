package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/strategia/internal/models"
	"github.com/rewired-gh/strategia/internal/storage"
	"github.com/rewired-gh/strategia/internal/strategia"
)

type fakeSource struct {
	mu    sync.Mutex
	snaps map[string]models.Snapshot
	errs  map[string]error
	calls int
}

func (f *fakeSource) FetchSnapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[symbol]; err != nil {
		return models.Snapshot{}, err
	}
	return f.snaps[symbol], nil
}

func level(price, strength float64) map[string]any {
	return map[string]any{"price": price, "strength": strength}
}

func btcSnapshot() models.Snapshot {
	return models.Snapshot{
		Symbol:      "BTCUSDT",
		Price:       50000,
		Supports:    []any{level(49000, 70)},
		Resistances: []any{level(51000, 60)},
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(100, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestMonitor(t *testing.T, s *storage.Storage, src SnapshotSource, cfg Config) (*Monitor, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	m := New(strategia.New(strategia.DefaultConfig()), s, src, cfg)
	m.now = c.now
	return m, c
}

func testConfig(symbols ...string) Config {
	cfg := DefaultConfig()
	cfg.Symbols = symbols
	return cfg
}

func TestRunCycle_AlertsAndPersists(t *testing.T) {
	s := newTestStorage(t)
	src := &fakeSource{snaps: map[string]models.Snapshot{"BTCUSDT": btcSnapshot()}}
	m, _ := newTestMonitor(t, s, src, testConfig("BTCUSDT"))

	alerts, err := m.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Symbol != "BTCUSDT" || a.BestScore != a.Scenarios[0].SignalScore || a.Signature == "" {
		t.Errorf("unexpected alert %+v", a)
	}
	if a.BestScore < 55 {
		t.Errorf("alert below quality bar: %d", a.BestScore)
	}

	d, err := s.GetLatestDerivation("BTCUSDT")
	if err != nil {
		t.Fatalf("GetLatestDerivation: %v", err)
	}
	if d.Tick != 0.1 || len(d.Scenarios) != len(a.Scenarios) || d.Fallback {
		t.Errorf("stored derivation %+v", d)
	}
}

func TestRunCycle_ChangeAndCooldown(t *testing.T) {
	s := newTestStorage(t)
	src := &fakeSource{snaps: map[string]models.Snapshot{"BTCUSDT": btcSnapshot()}}
	m, c := newTestMonitor(t, s, src, testConfig("BTCUSDT"))
	ctx := context.Background()

	alerts, err := m.RunCycle(ctx)
	if err != nil || len(alerts) != 1 {
		t.Fatalf("first cycle: %d alerts, err %v", len(alerts), err)
	}
	if err := m.RecordNotified(alerts); err != nil {
		t.Fatalf("RecordNotified: %v", err)
	}

	c.t = c.t.Add(10 * time.Minute)
	if alerts, _ = m.RunCycle(ctx); len(alerts) != 0 {
		t.Errorf("unchanged scenarios inside cooldown should not alert, got %d", len(alerts))
	}

	snap := btcSnapshot()
	snap.Supports = []any{level(48500, 80)}
	src.mu.Lock()
	src.snaps["BTCUSDT"] = snap
	src.mu.Unlock()
	if alerts, _ = m.RunCycle(ctx); len(alerts) != 1 {
		t.Errorf("changed scenarios should alert, got %d", len(alerts))
	}

	src.mu.Lock()
	src.snaps["BTCUSDT"] = btcSnapshot()
	src.mu.Unlock()
	c.t = c.t.Add(2 * time.Hour)
	if alerts, _ = m.RunCycle(ctx); len(alerts) != 1 {
		t.Errorf("elapsed cooldown should alert again, got %d", len(alerts))
	}
}

func TestRunCycle_Skips(t *testing.T) {
	tests := []struct {
		name string
		snap models.Snapshot
		min  int
	}{
		{"fallback result", models.Snapshot{Symbol: "XAUUSD", Price: 100}, 0},
		{"below quality bar", btcSnapshot(), 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStorage(t)
			src := &fakeSource{snaps: map[string]models.Snapshot{tt.snap.Symbol: tt.snap}}
			cfg := testConfig(tt.snap.Symbol)
			cfg.MinSignalScore = tt.min
			m, _ := newTestMonitor(t, s, src, cfg)

			alerts, err := m.RunCycle(context.Background())
			if err != nil {
				t.Fatalf("RunCycle: %v", err)
			}
			if len(alerts) != 0 {
				t.Errorf("got %d alerts, want none", len(alerts))
			}
			if _, err := s.GetLatestDerivation(tt.snap.Symbol); err != nil {
				t.Errorf("derivation should still be stored: %v", err)
			}
		})
	}
}

func TestRunCycle_Failures(t *testing.T) {
	s := newTestStorage(t)
	src := &fakeSource{
		snaps: map[string]models.Snapshot{"BTCUSDT": btcSnapshot()},
		errs:  map[string]error{"ETHUSDT": errors.New("backend down")},
	}

	m, _ := newTestMonitor(t, s, src, testConfig("BTCUSDT", "ETHUSDT"))
	alerts, err := m.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("partial failure should not fail the cycle: %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("got %d alerts, want 1", len(alerts))
	}

	m, _ = newTestMonitor(t, s, src, testConfig("ETHUSDT"))
	if _, err := m.RunCycle(context.Background()); err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Errorf("err = %v, want the fetch failure", err)
	}

	m, _ = newTestMonitor(t, s, src, testConfig())
	if _, err := m.RunCycle(context.Background()); err == nil {
		t.Error("expected error without symbols")
	}
}

func TestRunCycle_Cancelled(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{errs: map[string]error{"BTCUSDT": context.Canceled}}
	m, _ := newTestMonitor(t, s, src, testConfig("BTCUSDT"))
	if _, err := m.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew_RestoresNotified(t *testing.T) {
	s := newTestStorage(t)
	src := &fakeSource{snaps: map[string]models.Snapshot{"BTCUSDT": btcSnapshot()}}
	m, _ := newTestMonitor(t, s, src, testConfig("BTCUSDT"))

	alerts, err := m.RunCycle(context.Background())
	if err != nil || len(alerts) != 1 {
		t.Fatalf("first cycle: %d alerts, err %v", len(alerts), err)
	}
	if err := m.RecordNotified(alerts); err != nil {
		t.Fatalf("RecordNotified: %v", err)
	}

	restarted, _ := newTestMonitor(t, s, src, testConfig("BTCUSDT"))
	if alerts, _ := restarted.RunCycle(context.Background()); len(alerts) != 0 {
		t.Errorf("restarted monitor re-alerted %d times", len(alerts))
	}
}

func TestSignature(t *testing.T) {
	long := models.Scenario{Direction: models.Long, Entry: 100, Stop: 99, TP1: models.Float(101), Status: models.StatusActive}
	short := models.Scenario{Direction: models.Short, Entry: 102, Stop: 103, Status: models.StatusSuspended}

	sig := Signature([]models.Scenario{long, short}, 0.01)
	if want := "LONG|100|99|101|-|active;SHORT|102|103|-|-|suspended"; sig != want {
		t.Errorf("signature = %q, want %q", sig, want)
	}

	adjusted := long
	adjusted.Status = models.StatusAdjusted
	if Signature([]models.Scenario{adjusted, short}, 0.01) == sig {
		t.Error("a status change must change the signature")
	}
	if Signature([]models.Scenario{short, long}, 0.01) == sig {
		t.Error("rank order is part of the signature")
	}
}
