// Package strategia derives ranked LONG/SHORT trade scenarios from support and
// resistance levels and optional backend suggestions.
//
// The engine is pure: it performs no I/O and keeps no state between calls, so
// the same Input always yields the same Result.
package strategia

import (
	"github.com/rewired-gh/strategia/internal/fields"
	"github.com/rewired-gh/strategia/internal/models"
)

// Pipeline stage names passed to a TraceFunc.
const (
	StageCandidates = "candidates"
	StageMerged     = "merged"
	StageSanitized  = "sanitized"
	StageReconciled = "reconciled"
	StageDeduped    = "deduped"
	StageSelected   = "selected"
	StageRejected   = "rejected"
	StageFallback   = "fallback"
)

// TraceFunc observes the scenario set after each pipeline stage. It receives a
// copy and cannot influence the result.
type TraceFunc func(stage string, scenarios []models.Scenario)

// Option configures an Engine.
type Option func(*Engine)

// WithTrace installs a stage observer.
func WithTrace(fn TraceFunc) Option {
	return func(e *Engine) {
		e.trace = fn
	}
}

// Engine derives scenarios. It is safe for concurrent use.
type Engine struct {
	cfg   Config
	trace TraceFunc
}

// New creates an Engine. Zero-valued tunables fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Input is everything a derivation depends on.
type Input struct {
	Symbol      string
	Price       float64
	Supports    []any
	Resistances []any
	// Backend holds backend-suggested scenarios in their raw form.
	Backend []any
	// WinningDirection is the backend's directional bias, empty when unknown.
	WinningDirection models.Direction
	// Momentum is the market reading in [0,1], 0 bearish and 1 bullish.
	Momentum *float64
}

// Result is the ranked outcome of a derivation. Scenarios holds at most one
// LONG and one SHORT, best score first, and is never empty.
type Result struct {
	Scenarios []models.Scenario `json:"scenarios"`
	Index     models.LevelIndex `json:"index"`
	Fallback  bool              `json:"fallback"`
}

// Derive runs the full pipeline for one input.
func (e *Engine) Derive(in Input) Result {
	idx := e.BuildIndex(in.Symbol, in.Supports, in.Resistances)
	ref := referencePrice(in.Price, idx, in.Backend)
	idx.Tick = fitTick(idx.Tick, ref)
	tick := idx.Tick
	winning := winningDirection(in.WinningDirection)

	cands := e.GenerateCandidates(idx, in.Price)
	e.emit(StageCandidates, cands)

	cands = MergeWithBackend(cands, in.Backend)
	e.emit(StageMerged, cands)

	cands = e.Sanitize(cands, tick, in.Momentum)
	e.emit(StageSanitized, cands)

	cands = e.Reconcile(cands, idx, in.Price, winning)
	e.emit(StageReconciled, cands)

	cands = Dedupe(cands, tick)
	e.emit(StageDeduped, cands)

	selected := SelectBest(cands, in.Price, winning)
	valid := make([]models.Scenario, 0, len(selected))
	var rejected []models.Scenario
	for _, s := range selected {
		if err := s.Validate(tick, e.cfg.TPMinStepPct); err != nil {
			s.Note = err.Error()
			rejected = append(rejected, s)
			continue
		}
		valid = append(valid, s)
	}
	if len(rejected) > 0 {
		e.emit(StageRejected, rejected)
	}
	e.emit(StageSelected, valid)

	if len(valid) > 0 {
		return Result{Scenarios: valid, Index: idx}
	}

	fb := e.Fallback(ref, tick, winning)
	e.emit(StageFallback, fb)
	return Result{Scenarios: fb, Index: idx, Fallback: true}
}

func (e *Engine) emit(stage string, scenarios []models.Scenario) {
	if e.trace == nil {
		return
	}
	cp := make([]models.Scenario, len(scenarios))
	for i, s := range scenarios {
		cp[i] = s.Clone()
	}
	e.trace(stage, cp)
}

func winningDirection(d models.Direction) models.Direction {
	if dir, ok := ParseDirection(string(d)); ok {
		return dir
	}
	return ""
}

// referencePrice picks the fallback anchor: the caller's price when usable,
// else the median level, else the first valid backend entry, else 1.
func referencePrice(price float64, idx models.LevelIndex, backend []any) float64 {
	if finitePositive(price) {
		return price
	}
	if p, ok := medianPrice(idx.Levels); ok {
		return p
	}
	for _, item := range backend {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := fields.Entry.Float(obj); ok && p > 0 {
			return p
		}
	}
	return 1
}
