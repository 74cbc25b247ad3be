package strategia

import "strings"

// Config holds the engine tunables. Zero values are replaced by the defaults
// from DefaultConfig when an Engine is built.
type Config struct {
	// DefaultTick is used when a symbol has no entry in Ticks.
	DefaultTick float64
	// Ticks maps normalised symbols (e.g. "BTCUSDT") to their price increment.
	Ticks map[string]float64
	// EntryBufferPct offsets pullback/breakout entries from their level,
	// floored at one tick.
	EntryBufferPct float64
	// StopTicks is how far past a level a structural stop is placed.
	StopTicks int
	// MinGapTicks is the minimum entry–stop distance.
	MinGapTicks int
	// TPMinPct is the minimum entry→TP1 distance, as a fraction of entry.
	TPMinPct float64
	// TPMinStepPct is the minimum TP1→TP2 distance, as a fraction of TP1.
	TPMinStepPct float64
	// NearPct is the proximity window for StrengthNear and for detecting a
	// contested level, floored at two ticks.
	NearPct float64
	// FeeRate is the per-side fee used for the net risk-reward.
	FeeRate float64
}

// DefaultTicks is the built-in symbol → tick table.
var DefaultTicks = map[string]float64{
	"BTCUSDT": 0.1,
	"ETHUSDT": 0.01,
	"SOLUSDT": 0.001,
	"XRPUSDT": 0.0001,
	"EURUSD":  0.00001,
	"XAUUSD":  0.01,
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	ticks := make(map[string]float64, len(DefaultTicks))
	for k, v := range DefaultTicks {
		ticks[k] = v
	}
	return Config{
		DefaultTick:    0.01,
		Ticks:          ticks,
		EntryBufferPct: 0.0005,
		StopTicks:      2,
		MinGapTicks:    2,
		TPMinPct:       0.0035,
		TPMinStepPct:   0.0025,
		NearPct:        0.0015,
		FeeRate:        0.0004,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultTick <= 0 {
		c.DefaultTick = d.DefaultTick
	}
	ticks := d.Ticks
	for k, v := range c.Ticks {
		if v > 0 {
			ticks[NormalizeSymbol(k)] = v
		}
	}
	c.Ticks = ticks
	if c.EntryBufferPct <= 0 {
		c.EntryBufferPct = d.EntryBufferPct
	}
	if c.StopTicks <= 0 {
		c.StopTicks = d.StopTicks
	}
	if c.MinGapTicks <= 0 {
		c.MinGapTicks = d.MinGapTicks
	}
	if c.TPMinPct <= 0 {
		c.TPMinPct = d.TPMinPct
	}
	if c.TPMinStepPct <= 0 {
		c.TPMinStepPct = d.TPMinStepPct
	}
	if c.NearPct <= 0 {
		c.NearPct = d.NearPct
	}
	if c.FeeRate < 0 {
		c.FeeRate = d.FeeRate
	}
	return c
}

// NormalizeSymbol upper-cases a symbol and strips separators ("btc/usdt" → "BTCUSDT").
func NormalizeSymbol(symbol string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '-', '_', ':', ' ':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(symbol)))
}

// TickFor resolves the price increment for a symbol, trying the bare symbol
// and then the symbol quoted in USDT before falling back to DefaultTick.
func (c Config) TickFor(symbol string) float64 {
	norm := NormalizeSymbol(symbol)
	if norm != "" {
		if t, ok := c.Ticks[norm]; ok && t > 0 {
			return t
		}
		if !strings.HasSuffix(norm, "USDT") {
			if t, ok := c.Ticks[norm+"USDT"]; ok && t > 0 {
				return t
			}
		}
	}
	return c.DefaultTick
}
