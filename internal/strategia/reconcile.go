package strategia

import (
	"fmt"
	"math"

	"github.com/rewired-gh/strategia/internal/models"
)

// Reconcile resolves a contested level between the lead LONG and lead SHORT.
// When the LONG's stop and the SHORT's entry sit within the proximity window of
// each other, the stronger nearby level wins:
//
//   - SHORT side dominant (ties included): the LONG's stop moves just above the
//     dominant level and the LONG becomes adjusted; the SHORT is suspended with
//     its entry relocated below the former LONG stop, pending break and retest.
//   - LONG side dominant: the SHORT's entry is pushed beyond the LONG's stop and
//     the SHORT becomes adjusted; the LONG is untouched.
//
// Without both leads, or without a contest, the candidates come back unchanged.
func (e *Engine) Reconcile(cands []models.Scenario, idx models.LevelIndex, price float64, winning models.Direction) []models.Scenario {
	out := make([]models.Scenario, len(cands))
	for i, c := range cands {
		out[i] = c.Clone()
	}
	if !finitePositive(price) {
		return out
	}
	li := lead(out, models.Long, price, winning)
	si := lead(out, models.Short, price, winning)
	if li < 0 || si < 0 {
		return out
	}
	long, short := &out[li], &out[si]
	if !finitePositive(long.Stop) || !finitePositive(short.Entry) {
		return out
	}
	tick := idx.Tick
	if math.Abs(long.Stop-short.Entry) > nearWindow(price, tick, e.cfg.NearPct) {
		return out
	}

	sL, okL := StrengthNear(idx, long.Stop, e.cfg.NearPct)
	sS, okS := StrengthNear(idx, short.Entry, e.cfg.NearPct)
	if !okL && !okS {
		return out
	}
	if okS && (!okL || sS.Strength >= sL.Strength) {
		e.shortDominates(long, short, sS, idx)
	} else {
		e.longDominates(long, short, sL, idx)
	}
	return out
}

func (e *Engine) shortDominates(long, short *models.Scenario, dominant models.Level, idx models.LevelIndex) {
	tick := idx.Tick
	gap := float64(e.cfg.MinGapTicks) * tick
	formerStop := long.Stop

	long.Stop = RoundToTick(dominant.Price+tick, tick)
	long.Entry = math.Max(long.Entry, math.Max(
		RoundToTick(dominant.Price+e.buffer(dominant.Price, tick), tick),
		RoundToTick(long.Stop+gap, tick),
	))
	long.TP1, long.TP2 = e.pickTargets(long.Entry, models.Long, idx)
	long.Status = models.StatusAdjusted
	long.Invalidation = fmt.Sprintf("Close below %s", formatPrice(long.Stop))
	long.Note = fmt.Sprintf("Stop moved above dominant level %s (strength %.0f)", formatPrice(dominant.Price), dominant.Strength)
	e.measure(long, false)

	short.Entry = RoundToTick(formerStop-tick, tick)
	if short.Stop-short.Entry < gap {
		short.Stop = RoundToTick(short.Entry+gap, tick)
	}
	short.TP1, short.TP2 = e.pickTargets(short.Entry, models.Short, idx)
	short.Status = models.StatusSuspended
	short.Trigger = fmt.Sprintf("Break and retest below %s", formatPrice(formerStop))
	short.Note = fmt.Sprintf("Suspended: level %s dominates, waiting for a confirmed break", formatPrice(dominant.Price))
	e.measure(short, false)
}

func (e *Engine) longDominates(long, short *models.Scenario, dominant models.Level, idx models.LevelIndex) {
	tick := idx.Tick
	gap := float64(e.cfg.MinGapTicks) * tick

	base := math.Max(long.Stop, dominant.Price)
	short.Entry = RoundToTick(base+e.buffer(dominant.Price, tick), tick)
	if short.Stop-short.Entry < gap {
		short.Stop = RoundToTick(short.Entry+gap, tick)
	}
	short.TP1, short.TP2 = e.pickTargets(short.Entry, models.Short, idx)
	short.Status = models.StatusAdjusted
	short.Trigger = fmt.Sprintf("Rejection below %s", formatPrice(short.Entry))
	short.Invalidation = fmt.Sprintf("Close above %s", formatPrice(short.Stop))
	short.Note = fmt.Sprintf("Entry pushed beyond dominant level %s (strength %.0f)", formatPrice(dominant.Price), dominant.Strength)
	e.measure(short, false)
}
