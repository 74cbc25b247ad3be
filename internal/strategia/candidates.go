package strategia

import (
	"fmt"
	"math"

	"github.com/rewired-gh/strategia/internal/models"
)

// buffer is the distance between a level and an entry keyed off it.
func (e *Engine) buffer(level, tick float64) float64 {
	return RoundToTick(math.Max(tick, level*e.cfg.EntryBufferPct), tick)
}

// GenerateCandidates derives the local scenarios for price: a pullback per side
// from the nearest level on that side and a breakout per side from the nearest
// level in the breakout direction. Sides without a level produce nothing.
func (e *Engine) GenerateCandidates(idx models.LevelIndex, price float64) []models.Scenario {
	if !finitePositive(price) {
		return nil
	}
	below := idx.Below(price)
	above := idx.Above(price)

	var out []models.Scenario
	if s, ok := e.pullback(models.Long, below, idx); ok {
		out = append(out, s)
	}
	if s, ok := e.pullback(models.Short, above, idx); ok {
		out = append(out, s)
	}
	if s, ok := e.breakout(models.Long, above, idx); ok {
		out = append(out, s)
	}
	if s, ok := e.breakout(models.Short, below, idx); ok {
		out = append(out, s)
	}
	return out
}

// pullback waits for a retest of the nearest level on the scenario's own side:
// LONG reclaims a support below price, SHORT is rejected by a resistance above.
// The stop sits past the next level out, or StopTicks past the primary level.
func (e *Engine) pullback(dir models.Direction, side []models.Level, idx models.LevelIndex) (models.Scenario, bool) {
	if len(side) == 0 {
		return models.Scenario{}, false
	}
	tick := idx.Tick
	sign := dir.Sign()
	primary := side[0]
	anchor := primary.Price
	if len(side) > 1 {
		anchor = side[1].Price
	}

	entry := RoundToTick(primary.Price+sign*e.buffer(primary.Price, tick), tick)
	stop := RoundToTick(anchor-sign*float64(e.cfg.StopTicks)*tick, tick)
	tp1, tp2 := e.pickTargets(entry, dir, idx)

	s := models.Scenario{
		Direction:  dir,
		Entry:      entry,
		Stop:       stop,
		TP1:        tp1,
		TP2:        tp2,
		Confidence: 40 + 0.4*primary.Strength,
		Momentum:   math.NaN(),
		Status:     models.StatusActive,
		Source:     models.SourceSR,
	}
	if dir == models.Long {
		s.Explanation = fmt.Sprintf("Pullback to support %s (strength %.0f)", formatPrice(primary.Price), primary.Strength)
		s.Trigger = fmt.Sprintf("Reclaim above %s", formatPrice(entry))
		s.Invalidation = fmt.Sprintf("Close below %s", formatPrice(stop))
	} else {
		s.Explanation = fmt.Sprintf("Pullback to resistance %s (strength %.0f)", formatPrice(primary.Price), primary.Strength)
		s.Trigger = fmt.Sprintf("Rejection below %s", formatPrice(entry))
		s.Invalidation = fmt.Sprintf("Close above %s", formatPrice(stop))
	}
	return s, true
}

// breakout treats the nearest level in the trade direction as the trigger:
// price must close beyond it, and the stop sits just on its far side.
func (e *Engine) breakout(dir models.Direction, side []models.Level, idx models.LevelIndex) (models.Scenario, bool) {
	if len(side) == 0 {
		return models.Scenario{}, false
	}
	tick := idx.Tick
	sign := dir.Sign()
	lvl := side[0]
	buf := e.buffer(lvl.Price, tick)

	entry := RoundToTick(lvl.Price+sign*buf, tick)
	stop := RoundToTick(lvl.Price-sign*buf, tick)
	tp1, tp2 := e.pickTargets(entry, dir, idx)

	verb := "above"
	if dir == models.Short {
		verb = "below"
	}
	return models.Scenario{
		Direction:    dir,
		Entry:        entry,
		Stop:         stop,
		TP1:          tp1,
		TP2:          tp2,
		Confidence:   35 + 0.35*lvl.Strength,
		Momentum:     math.NaN(),
		Status:       models.StatusActive,
		Source:       models.SourceMechanical,
		Explanation:  fmt.Sprintf("Breakout of %s (strength %.0f)", formatPrice(lvl.Price), lvl.Strength),
		Trigger:      fmt.Sprintf("Close %s %s", verb, formatPrice(entry)),
		Invalidation: fmt.Sprintf("Back through %s", formatPrice(stop)),
	}, true
}
