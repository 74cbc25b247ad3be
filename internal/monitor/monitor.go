// Package monitor runs derivation cycles over the configured symbols and
// decides which results are worth notifying.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/strategia/internal/feed"
	"github.com/rewired-gh/strategia/internal/logger"
	"github.com/rewired-gh/strategia/internal/models"
	"github.com/rewired-gh/strategia/internal/storage"
	"github.com/rewired-gh/strategia/internal/strategia"
)

// SnapshotSource provides the latest backend snapshot for a symbol.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, symbol string) (models.Snapshot, error)
}

type Config struct {
	Symbols        []string
	Cooldown       time.Duration
	MinSignalScore int
	MaxConcurrent  int
}

func DefaultConfig() Config {
	return Config{
		Cooldown:       time.Hour,
		MinSignalScore: 55,
		MaxConcurrent:  4,
	}
}

type Monitor struct {
	engine   *strategia.Engine
	storage  *storage.Storage
	source   SnapshotSource
	config   Config
	mu       sync.Mutex
	notified map[string]storage.Notified
	now      func() time.Time
}

func New(engine *strategia.Engine, s *storage.Storage, source SnapshotSource, config Config) *Monitor {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	m := &Monitor{
		engine:   engine,
		storage:  s,
		source:   source,
		config:   config,
		notified: make(map[string]storage.Notified),
		now:      time.Now,
	}

	persisted, err := s.LoadNotified()
	if err != nil {
		logger.Warn("Failed to load notification state: %v", err)
	} else {
		m.notified = persisted
		logger.Info("Loaded notification state for %d symbols", len(persisted))
	}

	return m
}

type derived struct {
	symbol string
	snap   models.Snapshot
	result strategia.Result
	err    error
}

// RunCycle fetches every symbol concurrently, derives and persists the
// scenarios, and returns the alerts that passed the quality bar and the
// change/cooldown filter. It fails only when no symbol could be processed.
func (m *Monitor) RunCycle(ctx context.Context) ([]models.Alert, error) {
	if len(m.config.Symbols) == 0 {
		return nil, errors.New("no symbols configured")
	}

	results := make([]derived, len(m.config.Symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxConcurrent)
	for i, sym := range m.config.Symbols {
		g.Go(func() error {
			results[i].symbol = sym
			snap, err := m.source.FetchSnapshot(gctx, sym)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i].err = err
				return nil
			}
			if snap.Symbol == "" {
				snap.Symbol = sym
			}
			results[i].snap = snap
			results[i].result = m.engine.Derive(feed.Input(snap))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cycle interrupted: %w", err)
	}

	var alerts []models.Alert
	var errs []error
	for _, r := range results {
		if r.err != nil {
			logger.Warn("Failed to fetch %s: %v", r.symbol, r.err)
			errs = append(errs, fmt.Errorf("%s: %w", r.symbol, r.err))
			continue
		}

		d := &models.Derivation{
			Symbol:    r.snap.Symbol,
			Price:     r.snap.Price,
			Tick:      r.result.Index.Tick,
			Fallback:  r.result.Fallback,
			Scenarios: r.result.Scenarios,
			DerivedAt: m.now(),
		}
		if err := m.storage.SaveDerivation(d); err != nil {
			logger.Warn("Failed to save derivation for %s: %v", r.symbol, err)
			errs = append(errs, fmt.Errorf("%s: %w", r.symbol, err))
			continue
		}

		logger.Debug("Derived %s @ %v: %d scenarios (fallback=%v, levels=%d)",
			d.Symbol, d.Price, len(d.Scenarios), d.Fallback, len(r.result.Index.Levels))

		if alert, ok := m.evaluate(d); ok {
			alerts = append(alerts, alert)
		}
	}

	if len(errs) == len(results) {
		return nil, errors.Join(errs...)
	}
	return alerts, nil
}

// evaluate turns a stored derivation into an alert when it clears the quality
// bar and either its signature changed or the cooldown elapsed.
func (m *Monitor) evaluate(d *models.Derivation) (models.Alert, bool) {
	if d.Fallback {
		logger.Debug("Skipping %s: neutral fallback", d.Symbol)
		return models.Alert{}, false
	}
	best := d.Scenarios[0].SignalScore
	if best < m.config.MinSignalScore {
		logger.Debug("Skipping %s: best score %d below %d", d.Symbol, best, m.config.MinSignalScore)
		return models.Alert{}, false
	}

	sig := Signature(d.Scenarios, d.Tick)
	m.mu.Lock()
	rec, seen := m.notified[d.Symbol]
	m.mu.Unlock()
	if seen && rec.Signature == sig && d.DerivedAt.Sub(rec.SentAt) < m.config.Cooldown {
		logger.Debug("Skipping %s: unchanged since %s", d.Symbol, rec.SentAt.Format(time.RFC3339))
		return models.Alert{}, false
	}

	return models.Alert{
		Symbol:     d.Symbol,
		Price:      d.Price,
		Scenarios:  d.Scenarios,
		Signature:  sig,
		BestScore:  best,
		DetectedAt: d.DerivedAt,
	}, true
}

// Signature identifies a scenario set by the dedup key and status of each
// scenario, in rank order.
func Signature(scenarios []models.Scenario, tick float64) string {
	parts := make([]string, len(scenarios))
	for i, s := range scenarios {
		parts[i] = strategia.ScenarioKey(s, tick) + "|" + string(s.Status)
	}
	return strings.Join(parts, ";")
}

// RecordNotified marks alerts as sent and persists the notification state.
func (m *Monitor) RecordNotified(alerts []models.Alert) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, a := range alerts {
		rec := storage.Notified{Symbol: a.Symbol, Signature: a.Signature, SentAt: now}
		m.notified[a.Symbol] = rec
		if err := m.storage.SaveNotified(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
