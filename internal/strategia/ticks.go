package strategia

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundToTick snaps a price to the nearest multiple of tick. Decimal arithmetic
// keeps 0.1-style ticks from drifting (49000+24.5 stays 49024.5).
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 || !finite(price) {
		return price
	}
	t := decimal.NewFromFloat(tick)
	f, _ := decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).Float64()
	return f
}

// priceKey is the canonical tick-rounded text form of a price. Numerically
// equal decimals with different exponents render identically.
func priceKey(price, tick float64) string {
	if !finite(price) {
		return "-"
	}
	if tick <= 0 {
		return decimal.NewFromFloat(price).String()
	}
	t := decimal.NewFromFloat(tick)
	return decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).String()
}

// maxTickFraction is the largest tick, relative to price, used as configured.
const maxTickFraction = 0.01

// fitTick replaces a tick that is coarse for price with one scaled to the
// price's magnitude, four decimal places below its leading digit
// (0.02 → 0.000001).
func fitTick(tick, price float64) float64 {
	if !finitePositive(price) || (finitePositive(tick) && tick <= price*maxTickFraction) {
		return tick
	}
	return math.Pow(10, math.Floor(math.Log10(price))-4)
}

func formatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePositive(v float64) bool {
	return v > 0 && finite(v)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
