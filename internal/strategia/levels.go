package strategia

import (
	"math"
	"sort"

	"github.com/rewired-gh/strategia/internal/fields"
	"github.com/rewired-gh/strategia/internal/models"
)

// defaultStrength is used when a raw level carries no usable strength.
const defaultStrength = 50.0

// BuildIndex merges raw supports and resistances into one sorted, deduplicated
// index and resolves the symbol's tick. Malformed entries are dropped silently.
func (e *Engine) BuildIndex(symbol string, supports, resistances []any) models.LevelIndex {
	levels := make([]models.Level, 0, len(supports)+len(resistances))
	levels = append(levels, ParseLevels(supports)...)
	levels = append(levels, ParseLevels(resistances)...)
	return models.LevelIndex{
		Levels: NormalizeLevels(levels),
		Tick:   e.cfg.TickFor(symbol),
	}
}

// ParseLevels extracts levels from a loosely-typed backend array. An element
// may be an object with aliased fields or a bare number.
func ParseLevels(raw []any) []models.Level {
	out := make([]models.Level, 0, len(raw))
	for _, item := range raw {
		if lvl, ok := parseLevel(item); ok {
			out = append(out, lvl)
		}
	}
	return out
}

func parseLevel(item any) (models.Level, bool) {
	obj, isObj := item.(map[string]any)
	if !isObj {
		p, ok := fields.ToFloat(item)
		if !ok || p <= 0 {
			return models.Level{}, false
		}
		return models.Level{Price: p, Strength: defaultStrength}, true
	}

	p, ok := fields.LevelPrice.Float(obj)
	if !ok || p <= 0 {
		return models.Level{}, false
	}
	strength := defaultStrength
	if s, ok := fields.LevelStrength.Float(obj); ok {
		strength = normalizeStrength(s)
	}
	return models.Level{Price: p, Strength: strength}, true
}

// normalizeStrength maps a raw strength onto 0–100: values above 1 are already
// on that scale, values up to 1 are fractions.
func normalizeStrength(s float64) float64 {
	if s <= 1 {
		s *= 100
	}
	return math.Max(0, math.Min(100, s))
}

// NormalizeLevels sorts levels ascending and merges equal prices, keeping the
// strongest. The input slice is not modified.
func NormalizeLevels(levels []models.Level) []models.Level {
	out := make([]models.Level, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price < out[j].Price
	})
	merged := out[:0]
	for _, l := range out {
		n := len(merged)
		if n > 0 && merged[n-1].Price == l.Price {
			if l.Strength > merged[n-1].Strength {
				merged[n-1].Strength = l.Strength
			}
			continue
		}
		merged = append(merged, l)
	}
	return merged
}

// StrengthNear returns the strongest level within max(2·tick, nearPct·price)
// of price. Equal strengths resolve to the level nearer to price.
func StrengthNear(idx models.LevelIndex, price, nearPct float64) (models.Level, bool) {
	if !finitePositive(price) {
		return models.Level{}, false
	}
	window := nearWindow(price, idx.Tick, nearPct)
	var best models.Level
	found := false
	for _, l := range idx.Levels {
		d := math.Abs(l.Price - price)
		if d > window {
			continue
		}
		if !found || l.Strength > best.Strength ||
			(l.Strength == best.Strength && d < math.Abs(best.Price-price)) {
			best = l
			found = true
		}
	}
	return best, found
}

func nearWindow(price, tick, nearPct float64) float64 {
	return math.Max(2*tick, nearPct*price)
}

// medianPrice is the reference price used when the caller's price is unusable.
func medianPrice(levels []models.Level) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	return levels[len(levels)/2].Price, true
}
