package strategia

import (
	"math"
	"testing"

	"github.com/rewired-gh/strategia/internal/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(DefaultConfig())
}

func TestBuildIndex(t *testing.T) {
	e := newTestEngine(t)
	supports := []any{
		map[string]any{"prezzo": "49000", "forza": 0.7},
		map[string]any{"price": -1, "strength": 90},
		"abc",
		48000.0,
		nil,
	}
	resistances := []any{
		map[string]any{"price": 51000.0, "strength": 60.0},
		map[string]any{"livello": 49000.0, "score": 90.0},
	}

	idx := e.BuildIndex("btc/usdt", supports, resistances)
	if idx.Tick != 0.1 {
		t.Errorf("tick = %v, want 0.1", idx.Tick)
	}
	want := []models.Level{
		{Price: 48000, Strength: 50},
		{Price: 49000, Strength: 90},
		{Price: 51000, Strength: 60},
	}
	if len(idx.Levels) != len(want) {
		t.Fatalf("got %d levels, want %d: %+v", len(idx.Levels), len(want), idx.Levels)
	}
	for i, l := range want {
		if !approx(idx.Levels[i].Price, l.Price) || !approx(idx.Levels[i].Strength, l.Strength) {
			t.Errorf("level %d = %+v, want %+v", i, idx.Levels[i], l)
		}
	}
}

func TestNormalizeStrength(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.7, 70},
		{1, 100},
		{85, 85},
		{250, 100},
		{-3, 0},
	}
	for _, tt := range tests {
		if got := normalizeStrength(tt.in); !approx(got, tt.want) {
			t.Errorf("normalizeStrength(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTickFor(t *testing.T) {
	cfg := New(Config{Ticks: map[string]float64{"dogeusdt": 0.00001}}).Config()
	tests := []struct {
		symbol string
		want   float64
	}{
		{"BTCUSDT", 0.1},
		{"eth-usdt", 0.01},
		{"SOL", 0.001},
		{"DOGEUSDT", 0.00001},
		{"UNKNOWN", 0.01},
		{"", 0.01},
	}
	for _, tt := range tests {
		if got := cfg.TickFor(tt.symbol); got != tt.want {
			t.Errorf("TickFor(%q) = %v, want %v", tt.symbol, got, tt.want)
		}
	}
}

func TestStrengthNear(t *testing.T) {
	idx := models.LevelIndex{
		Tick: 0.01,
		Levels: []models.Level{
			{Price: 100, Strength: 80},
			{Price: 100.1, Strength: 80},
			{Price: 100.3, Strength: 90},
		},
	}
	tests := []struct {
		name      string
		price     float64
		wantPrice float64
		wantOK    bool
	}{
		{"equal strength resolves to nearer", 100.04, 100, true},
		{"strongest in window", 100.2, 100.3, true},
		{"nothing in window", 90, 0, false},
		{"invalid price", math.NaN(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := StrengthNear(idx, tt.price, 0.0015)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !approx(l.Price, tt.wantPrice) {
				t.Errorf("level = %v, want %v", l.Price, tt.wantPrice)
			}
		})
	}
}

func TestFitTick(t *testing.T) {
	tests := []struct {
		name              string
		tick, price, want float64
	}{
		{"fine tick kept", 0.1, 50000, 0.1},
		{"boundary kept", 0.01, 1, 0.01},
		{"coarse for cents", 0.01, 0.02, 0.000001},
		{"coarse for micro price", 0.01, 0.00002, 1e-9},
		{"missing tick", 0, 250, 0.01},
		{"unusable price", 0.01, math.NaN(), 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fitTick(tt.tick, tt.price)
			if math.Abs(got-tt.want) > tt.want*1e-9 {
				t.Errorf("fitTick(%v, %v) = %v, want %v", tt.tick, tt.price, got, tt.want)
			}
		})
	}
}

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		price, tick, want float64
	}{
		{49024.5, 0.1, 49024.5},
		{100.004, 0.01, 100},
		{100.006, 0.01, 100.01},
		{1.23456789, 0.0001, 1.2346},
		{42, 0, 42},
	}
	for _, tt := range tests {
		if got := RoundToTick(tt.price, tt.tick); got != tt.want {
			t.Errorf("RoundToTick(%v, %v) = %v, want %v", tt.price, tt.tick, got, tt.want)
		}
	}
}
