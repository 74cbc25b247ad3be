package feed

import (
	"time"

	"github.com/rewired-gh/strategia/internal/fields"
	"github.com/rewired-gh/strategia/internal/models"
	"github.com/rewired-gh/strategia/internal/strategia"
)

// ParseSnapshot maps a decoded backend payload onto a Snapshot. Level and
// scenario arrays are passed through untouched; the engine parses them.
func ParseSnapshot(raw map[string]any) models.Snapshot {
	snap := models.Snapshot{FetchedAt: time.Now()}

	if s, ok := fields.Symbol.String(raw); ok {
		snap.Symbol = strategia.NormalizeSymbol(s)
	}
	if p, ok := fields.Price.Float(raw); ok {
		snap.Price = p
	}
	snap.Supports, _ = fields.Supports.Slice(raw)
	snap.Resistances, _ = fields.Resistances.Slice(raw)
	snap.Scenarios, _ = fields.Scenarios.Slice(raw)

	if d, ok := fields.WinningDirection.String(raw); ok {
		if dir, ok := strategia.ParseDirection(d); ok {
			snap.WinningDirection = dir
		}
	}
	if m, ok := fields.Momentum.Float(raw); ok {
		snap.Momentum = &m
	}
	return snap
}

// Input converts a snapshot into an engine input.
func Input(snap models.Snapshot) strategia.Input {
	return strategia.Input{
		Symbol:           snap.Symbol,
		Price:            snap.Price,
		Supports:         snap.Supports,
		Resistances:      snap.Resistances,
		Backend:          snap.Scenarios,
		WinningDirection: snap.WinningDirection,
		Momentum:         snap.Momentum,
	}
}
