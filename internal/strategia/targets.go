package strategia

import (
	"github.com/rewired-gh/strategia/internal/models"
)

// PickTargets walks the levels beyond entry in the trade direction and returns
// up to two take-profits. TP1 must sit at least minPct past entry, TP2 at least
// minStep past TP1. Targets that do not qualify are left nil, never synthesized.
func PickTargets(entry float64, dir models.Direction, levels []models.Level, minPct, minStep float64) (tp1, tp2 *float64) {
	if !finitePositive(entry) || !dir.Valid() {
		return nil, nil
	}
	sign := dir.Sign()
	beyond := models.LevelIndex{Levels: NormalizeLevels(levels)}.Beyond(entry, dir)

	first := entry * (1 + sign*minPct)
	for _, l := range beyond {
		p := l.Price
		if tp1 == nil {
			if (p-first)*sign >= 0 {
				tp1 = models.Float(p)
			}
			continue
		}
		if (p-*tp1*(1+sign*minStep))*sign >= 0 {
			tp2 = models.Float(p)
			break
		}
	}
	return tp1, tp2
}

func (e *Engine) pickTargets(entry float64, dir models.Direction, idx models.LevelIndex) (*float64, *float64) {
	return PickTargets(entry, dir, idx.Levels, e.cfg.TPMinPct, e.cfg.TPMinStepPct)
}
