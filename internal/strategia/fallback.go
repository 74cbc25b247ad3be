package strategia

import (
	"github.com/rewired-gh/strategia/internal/models"
)

const fallbackNote = "No usable levels or backend scenarios: neutral placeholder around the current price"

// Fallback synthesizes one suspended LONG and one suspended SHORT from
// price ± k·tick so the dashboard never receives an empty result. A tick that
// is coarse for price is scaled down so every level stays positive.
func (e *Engine) Fallback(price, tick float64, winning models.Direction) []models.Scenario {
	if !finitePositive(price) {
		price = 1
	}
	tick = fitTick(tick, price)
	mk := func(dir models.Direction) models.Scenario {
		sign := dir.Sign()
		s := models.Scenario{
			Direction:  dir,
			Entry:      RoundToTick(price+sign*tick, tick),
			Stop:       RoundToTick(price-sign*3*tick, tick),
			TP1:        models.Float(RoundToTick(price+sign*5*tick, tick)),
			Confidence: defaultConfidence,
			Momentum:   0.5,
			Status:     models.StatusSuspended,
			Source:     models.SourceSR,
			Note:       fallbackNote,
		}
		e.measure(&s, false)
		return score(s, price, winning)
	}
	out := []models.Scenario{mk(models.Long), mk(models.Short)}
	if out[1].SignalScore > out[0].SignalScore {
		out[0], out[1] = out[1], out[0]
	}
	return out
}
