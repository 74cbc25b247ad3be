package strategia

import (
	"math"
	"strings"

	"github.com/rewired-gh/strategia/internal/fields"
	"github.com/rewired-gh/strategia/internal/models"
)

// ParseDirection maps the backend's direction vocabulary onto LONG/SHORT.
func ParseDirection(raw string) (models.Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long", "buy", "rialzo", "bull", "bullish", "up":
		return models.Long, true
	case "short", "sell", "ribasso", "bear", "bearish", "down":
		return models.Short, true
	default:
		return "", false
	}
}

// ParseBackend converts backend-suggested scenarios into raw candidates.
// Items without a recognisable direction are skipped; numeric fields that are
// absent or malformed are left NaN/nil for the sanitizer to settle.
func ParseBackend(raw []any) []models.Scenario {
	out := make([]models.Scenario, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		d, ok := fields.Direction.String(obj)
		if !ok {
			continue
		}
		dir, ok := ParseDirection(d)
		if !ok {
			continue
		}

		s := models.Scenario{
			Direction:  dir,
			Entry:      floatOr(fields.Entry, obj, math.NaN()),
			Stop:       floatOr(fields.Stop, obj, math.NaN()),
			RR:         floatOr(fields.RR, obj, 0),
			Confidence: floatOr(fields.Confidence, obj, math.NaN()),
			Momentum:   floatOr(fields.Momentum, obj, math.NaN()),
			Status:     models.StatusActive,
			Source:     models.SourceBackend,
		}
		if v, ok := fields.TP1.Float(obj); ok {
			s.TP1 = models.Float(v)
		}
		if v, ok := fields.TP2.Float(obj); ok {
			s.TP2 = models.Float(v)
		}
		s.Explanation, _ = fields.Explanation.String(obj)
		s.Trigger, _ = fields.Trigger.String(obj)
		s.Invalidation, _ = fields.Invalidation.String(obj)
		out = append(out, s)
	}
	return out
}

// MergeWithBackend appends backend candidates after the local ones. Duplicates
// are kept; the deduplicator settles them later.
func MergeWithBackend(local []models.Scenario, backend []any) []models.Scenario {
	parsed := ParseBackend(backend)
	out := make([]models.Scenario, 0, len(local)+len(parsed))
	for _, s := range local {
		out = append(out, s.Clone())
	}
	return append(out, parsed...)
}

func floatOr(c fields.Chain, obj map[string]any, def float64) float64 {
	if v, ok := c.Float(obj); ok {
		return v
	}
	return def
}
