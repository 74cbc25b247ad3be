package fields

import (
	"encoding/json"
	"testing"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{"float", 1.5, 1.5, true},
		{"int", 42, 42, true},
		{"uint8", uint8(7), 7, true},
		{"json number", json.Number("101.25"), 101.25, true},
		{"string", " 99.5 ", 99.5, true},
		{"percent string", "35%", 35, true},
		{"decimal comma", "1,5", 1.5, true},
		{"thousands and decimal", "1,000.5", 0, false},
		{"empty string", "", 0, false},
		{"garbage", "abc", 0, false},
		{"NaN string", "NaN", 0, false},
		{"Inf string", "+Inf", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
		{"object", map[string]any{"price": 1.0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ToFloat(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ToFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelPricePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		want   float64
		wantOK bool
	}{
		{"price wins over prezzo", map[string]any{"prezzo": 2.0, "price": 1.0}, 1, true},
		{"prezzo before valore", map[string]any{"valore": 3.0, "prezzo": 2.0}, 2, true},
		{"valore before level", map[string]any{"level": 4.0, "valore": 3.0}, 3, true},
		{"level before livello", map[string]any{"livello": 5.0, "level": 4.0}, 4, true},
		{"value last", map[string]any{"value": 6.0}, 6, true},
		{"nil skipped", map[string]any{"price": nil, "livello": 5.0}, 5, true},
		{"unparseable does not fall through", map[string]any{"price": "x", "livello": 5.0}, 0, false},
		{"absent", map[string]any{"foo": 1.0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LevelPrice.Float(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelStrengthPrecedence(t *testing.T) {
	raw := map[string]any{"weight": 10.0, "peso": 20.0, "score": 30.0, "forza": 40.0}
	got, ok := LevelStrength.Float(raw)
	if !ok || got != 40 {
		t.Errorf("got %v (ok=%v), want forza=40", got, ok)
	}
	delete(raw, "forza")
	if got, _ := LevelStrength.Float(raw); got != 30 {
		t.Errorf("got %v, want score=30", got)
	}
}

func TestChainString(t *testing.T) {
	raw := map[string]any{"direction": "short", "direzione": "  LONG "}
	got, ok := Direction.String(raw)
	if !ok || got != "LONG" {
		t.Errorf("Direction.String() = %q, %v; want LONG", got, ok)
	}
	if _, ok := Direction.String(map[string]any{"direzione": 3}); ok {
		t.Error("expected non-string direction to be rejected")
	}
}

func TestChainSlice(t *testing.T) {
	raw := map[string]any{"supports": []any{1.0}, "supporti": []any{2.0, 3.0}}
	got, ok := Supports.Slice(raw)
	if !ok || len(got) != 2 {
		t.Errorf("Supports.Slice() = %v, %v; want supporti", got, ok)
	}
	if _, ok := Supports.Slice(nil); ok {
		t.Error("expected nil payload to resolve to nothing")
	}
}
