package strategia

import (
	"math"

	"github.com/rewired-gh/strategia/internal/models"
)

// Composite score weights.
const (
	probConfidenceW = 0.50
	probTrendW      = 0.20
	probLevelW      = 0.15
	probMomentumW   = 0.15

	scoreProbW   = 0.50
	scorePayoffW = 0.35
	scoreProxW   = 0.15

	levelQualityBoth   = 0.6
	levelQualitySingle = 0.3

	// proximityHorizon is the relative entry distance at which prox reaches 0.
	proximityHorizon = 0.03

	coherenceBoost   = 1.10
	coherencePenalty = 0.90
)

// ComputeSignalScore rates a scenario 0–100 against the current price and the
// backend's winning direction (empty when unknown). The scenario's Momentum is
// its agreement with its own direction, 0.5 being neutral.
//
// prob   = 0.50·conf + 0.20·trend + 0.15·levelQuality + 0.15·momentum
// payoff = clamp01(0.5·rr/2)
// prox   = 1 − min(|entry−price|/price/0.03, 1)
// score  = 0.50·prob + 0.35·payoff + 0.15·prox, nudged once by ±10%.
func ComputeSignalScore(s models.Scenario, price float64, winning models.Direction) (int, models.SignalBreakdown) {
	conf := normalizeConfidence(s.Confidence) / 100
	momentum := 0.5
	if finite(s.Momentum) {
		momentum = clamp01(s.Momentum)
	}

	matches := winning.Valid() && s.Direction == winning
	trend := 0.0
	if matches {
		trend = 1
	}
	levelQuality := levelQualitySingle
	if s.TP1 != nil && s.TP2 != nil {
		levelQuality = levelQualityBoth
	}
	prob := clamp01(probConfidenceW*conf + probTrendW*trend + probLevelW*levelQuality + probMomentumW*momentum)

	rr := s.RR
	if !finite(rr) || rr < 0 {
		rr = 0
	}
	payoff := clamp01(0.5 * rr / 2)

	prox := 0.0
	if finitePositive(price) && finite(s.Entry) {
		prox = 1 - math.Min(math.Abs(s.Entry-price)/price/proximityHorizon, 1)
	}

	score01 := scoreProbW*prob + scorePayoffW*payoff + scoreProxW*prox
	score01 *= coherenceMultiplier(matches, winning.Valid(), momentum)

	return int(math.Round(clamp01(score01) * 100)), models.SignalBreakdown{
		Prob:   prob,
		Payoff: payoff,
		Prox:   prox,
	}
}

// coherenceMultiplier is applied exactly once per score: a boost when the
// scenario trades with the winning direction and momentum agrees, a penalty
// when it trades against a known winner and momentum disagrees too.
func coherenceMultiplier(matches, winnerKnown bool, momentum float64) float64 {
	switch {
	case matches && momentum > 0.5:
		return coherenceBoost
	case winnerKnown && !matches && momentum < 0.5:
		return coherencePenalty
	default:
		return 1
	}
}

// score stamps SignalScore and Breakdown onto a copy of s.
func score(s models.Scenario, price float64, winning models.Direction) models.Scenario {
	out := s.Clone()
	v, b := ComputeSignalScore(out, price, winning)
	out.SignalScore = v
	out.Breakdown = &b
	return out
}
