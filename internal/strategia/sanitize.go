package strategia

import (
	"math"

	"github.com/rewired-gh/strategia/internal/models"
)

// defaultConfidence applies when a candidate carries no usable confidence.
const defaultConfidence = 50.0

// Sanitize coerces every candidate into a well-formed scenario: prices snapped
// to tick, confidence clamped to [0,100], the minimum entry–stop gap enforced,
// targets kept only when they sit beyond entry, and risk-reward recomputed.
// Candidates without a usable entry or stop are dropped.
func (e *Engine) Sanitize(cands []models.Scenario, tick float64, momentum *float64) []models.Scenario {
	out := make([]models.Scenario, 0, len(cands))
	for _, c := range cands {
		s := c.Clone()
		if !s.Direction.Valid() || !finitePositive(s.Entry) || !finitePositive(s.Stop) {
			continue
		}
		s.Entry = RoundToTick(s.Entry, tick)
		s.Stop = RoundToTick(s.Stop, tick)
		if !e.enforceGap(&s, tick) {
			continue
		}
		s.TP1 = cleanTarget(s.TP1, tick)
		s.TP2 = cleanTarget(s.TP2, tick)
		e.settleTargets(&s)

		s.Confidence = normalizeConfidence(s.Confidence)
		if !finite(s.Momentum) {
			s.Momentum = directionalMomentum(s.Direction, momentum)
		}
		s.Momentum = clamp01(s.Momentum)
		if !finite(s.RR) || s.RR < 0 {
			s.RR = 0
		}
		e.measure(&s, true)
		if s.Status == "" {
			s.Status = models.StatusActive
		}
		s.SignalScore = 0
		s.Breakdown = nil
		out = append(out, s)
	}
	return out
}

// enforceGap moves the endpoint that is freer to move (stop for LONG, entry for
// SHORT) until entry and stop are MinGapTicks apart. It reports false when the
// move would push a price to zero or below.
func (e *Engine) enforceGap(s *models.Scenario, tick float64) bool {
	gap := float64(e.cfg.MinGapTicks) * tick
	eps := tick * 1e-6
	if s.Risk() >= gap-eps {
		return true
	}
	if s.Direction == models.Long {
		s.Stop = RoundToTick(s.Entry-gap, tick)
	} else {
		s.Entry = RoundToTick(s.Stop-gap, tick)
	}
	return s.Entry > 0 && s.Stop > 0
}

// settleTargets drops targets on the wrong side of entry, orders the pair,
// promotes a lone TP2 and drops a TP2 that is not spaced far enough from TP1.
func (e *Engine) settleTargets(s *models.Scenario) {
	sign := s.Direction.Sign()
	if s.TP1 != nil && (*s.TP1-s.Entry)*sign <= 0 {
		s.TP1 = nil
	}
	if s.TP2 != nil && (*s.TP2-s.Entry)*sign <= 0 {
		s.TP2 = nil
	}
	if s.TP1 == nil {
		s.TP1, s.TP2 = s.TP2, nil
	}
	if s.TP1 != nil && s.TP2 != nil {
		if (*s.TP2-*s.TP1)*sign < 0 {
			s.TP1, s.TP2 = s.TP2, s.TP1
		}
		if (*s.TP2-*s.TP1*(1+sign*e.cfg.TPMinStepPct))*sign < 0 {
			s.TP2 = nil
		}
	}
}

// measure recomputes rr and rrNet from TP1. Without TP1 a previously supplied
// rr is kept only when keepRR is set.
func (e *Engine) measure(s *models.Scenario, keepRR bool) {
	risk := s.Risk()
	if s.TP1 == nil || risk <= 0 {
		if !keepRR {
			s.RR = 0
		}
		s.RRNet = 0
		return
	}
	reward := math.Abs(*s.TP1 - s.Entry)
	fee := s.Entry * e.cfg.FeeRate * 2
	s.RR = reward / risk
	s.RRNet = math.Max(0, (reward-fee)/(risk+fee))
}

func cleanTarget(tp *float64, tick float64) *float64 {
	if tp == nil || !finitePositive(*tp) {
		return nil
	}
	return models.Float(RoundToTick(*tp, tick))
}

// normalizeConfidence rescales fractional confidences and clamps to [0,100].
func normalizeConfidence(c float64) float64 {
	if !finite(c) {
		return defaultConfidence
	}
	if c > 0 && c <= 1 {
		c *= 100
	}
	return math.Max(0, math.Min(100, c))
}

// directionalMomentum turns a market momentum reading (0 bearish, 1 bullish)
// into agreement with the scenario's direction. Unknown momentum is neutral.
func directionalMomentum(dir models.Direction, momentum *float64) float64 {
	if momentum == nil || !finite(*momentum) {
		return 0.5
	}
	m := clamp01(*momentum)
	if dir == models.Short {
		return 1 - m
	}
	return m
}
