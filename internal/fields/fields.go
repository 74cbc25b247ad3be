// Package fields resolves loosely-typed backend payload fields through ordered
// alias lists. Each field is a Chain of accessors; the first accessor that finds
// a non-nil value wins, and that value alone is parsed.
package fields

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Accessor extracts one candidate value from a raw payload object.
type Accessor func(raw map[string]any) (any, bool)

// Key returns an accessor reading a single key. Nil values count as absent.
func Key(name string) Accessor {
	return func(raw map[string]any) (any, bool) {
		v, ok := raw[name]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
}

// Chain is an ordered list of accessors for one logical field.
type Chain []Accessor

// Keys builds a chain from key names in precedence order.
func Keys(names ...string) Chain {
	c := make(Chain, 0, len(names))
	for _, n := range names {
		c = append(c, Key(n))
	}
	return c
}

// Value returns the first non-nil value found along the chain.
func (c Chain) Value(raw map[string]any) (any, bool) {
	if raw == nil {
		return nil, false
	}
	for _, acc := range c {
		if v, ok := acc(raw); ok {
			return v, true
		}
	}
	return nil, false
}

// Float resolves the chain and parses the winning value as a finite number.
// A present but unparseable value does not fall through to later aliases.
func (c Chain) Float(raw map[string]any) (float64, bool) {
	v, ok := c.Value(raw)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// String resolves the chain and returns the winning value as trimmed text.
func (c Chain) String(raw map[string]any) (string, bool) {
	v, ok := c.Value(raw)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		return s, s != ""
	case json.Number:
		return s.String(), true
	case float64:
		return cast.ToString(s), true
	default:
		return "", false
	}
}

// Slice resolves the chain and returns the winning value as a JSON array.
func (c Chain) Slice(raw map[string]any) ([]any, bool) {
	v, ok := c.Value(raw)
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

// Known aliases, in precedence order.
var (
	LevelPrice    = Keys("price", "prezzo", "valore", "level", "livello", "value")
	LevelStrength = Keys("strength", "forza", "score", "peso", "weight")

	Direction    = Keys("direzione", "direction", "side", "dir")
	Entry        = Keys("entry", "ingresso", "entrata", "prezzo_ingresso")
	Stop         = Keys("stop", "sl", "stop_loss", "stoploss")
	TP1          = Keys("tp1", "target1", "tp", "take_profit")
	TP2          = Keys("tp2", "target2")
	Confidence   = Keys("confidenza", "confidence", "conf", "probabilita")
	RR           = Keys("rr", "risk_reward")
	Momentum     = Keys("momentum")
	Explanation  = Keys("spiegazione", "explanation", "motivo")
	Trigger      = Keys("trigger", "innesco")
	Invalidation = Keys("invalidazione", "invalidation")

	Symbol           = Keys("symbol", "simbolo")
	Price            = Keys("price", "prezzo", "last")
	Supports         = Keys("supporti", "supports")
	Resistances      = Keys("resistenze", "resistances")
	Scenarios        = Keys("strategia_ai", "scenarios", "entries")
	WinningDirection = Keys("direzione_vincente", "winning_direction", "bias")
)

// ToFloat coerces a decoded JSON value into a finite float64.
// Strings are trimmed, a trailing percent sign is ignored and a lone decimal
// comma is accepted ("1,5" → 1.5). Booleans never count as numbers.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		v = n.String()
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		if s == "" {
			return 0, false
		}
		if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
