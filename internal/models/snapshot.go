package models

import (
	"errors"
	"time"
)

// Snapshot is one backend analysis payload for a symbol. Level and scenario
// arrays stay loosely typed; the engine parses them defensively.
type Snapshot struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Supports         []any     `json:"supporti,omitempty"`
	Resistances      []any     `json:"resistenze,omitempty"`
	Scenarios        []any     `json:"strategia_ai,omitempty"`
	WinningDirection Direction `json:"direzione_vincente,omitempty"`
	Momentum         *float64  `json:"momentum,omitempty"`
	FetchedAt        time.Time `json:"-"`
}

// Derivation is a stored engine result for one symbol at one point in time.
type Derivation struct {
	ID        string     `json:"id"`
	Symbol    string     `json:"symbol"`
	Price     float64    `json:"price"`
	Tick      float64    `json:"tick"`
	Fallback  bool       `json:"fallback"`
	Scenarios []Scenario `json:"scenarios"`
	DerivedAt time.Time  `json:"derived_at"`
}

// Validate checks derivation field constraints.
func (d *Derivation) Validate() error {
	if d.ID == "" {
		return errors.New("derivation ID must not be empty")
	}
	if d.Symbol == "" {
		return errors.New("symbol must not be empty")
	}
	if d.Tick <= 0 {
		return errors.New("tick must be positive")
	}
	if len(d.Scenarios) == 0 {
		return errors.New("derivation must carry at least one scenario")
	}
	seen := make(map[Direction]bool, 2)
	for _, s := range d.Scenarios {
		if seen[s.Direction] {
			return errors.New("at most one scenario per direction")
		}
		seen[s.Direction] = true
	}
	if d.DerivedAt.IsZero() {
		return errors.New("derived at must be set")
	}
	return nil
}

// Alert is a derivation worth notifying: its scenario set changed or the
// cooldown since the last notification elapsed.
type Alert struct {
	Symbol     string
	Price      float64
	Scenarios  []Scenario
	Signature  string
	BestScore  int
	DetectedAt time.Time
}
