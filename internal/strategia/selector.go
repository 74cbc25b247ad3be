package strategia

import (
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/strategia/internal/models"
)

// ScenarioKey identifies numerically equivalent scenarios:
// direction plus tick-rounded entry, stop, tp1 and tp2.
func ScenarioKey(s models.Scenario, tick float64) string {
	tp := func(p *float64) string {
		if p == nil {
			return "-"
		}
		return priceKey(*p, tick)
	}
	return strings.Join([]string{
		string(s.Direction),
		priceKey(s.Entry, tick),
		priceKey(s.Stop, tick),
		tp(s.TP1),
		tp(s.TP2),
	}, "|")
}

// Dedupe collapses candidates with the same ScenarioKey, keeping the one with
// the higher confidence (the earlier one on ties). Order is preserved.
func Dedupe(cands []models.Scenario, tick float64) []models.Scenario {
	seen := make(map[string]int, len(cands))
	out := make([]models.Scenario, 0, len(cands))
	for _, s := range cands {
		k := ScenarioKey(s, tick)
		if i, ok := seen[k]; ok {
			if s.Confidence > out[i].Confidence {
				out[i] = s.Clone()
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, s.Clone())
	}
	return out
}

// better reports whether a outranks b: higher score, then entry closer to price.
func better(a, b models.Scenario, price float64) bool {
	if a.SignalScore != b.SignalScore {
		return a.SignalScore > b.SignalScore
	}
	return math.Abs(a.Entry-price) < math.Abs(b.Entry-price)
}

// lead returns the position of the best-scoring candidate for dir, or -1.
func lead(cands []models.Scenario, dir models.Direction, price float64, winning models.Direction) int {
	best := -1
	var bestScored models.Scenario
	for i, c := range cands {
		if c.Direction != dir {
			continue
		}
		sc := score(c, price, winning)
		if best < 0 || better(sc, bestScored, price) {
			best = i
			bestScored = sc
		}
	}
	return best
}

// SelectBest scores every candidate and keeps the single best LONG and best
// SHORT, ranked by score (LONG first on equal scores).
func SelectBest(cands []models.Scenario, price float64, winning models.Direction) []models.Scenario {
	out := make([]models.Scenario, 0, 2)
	for _, dir := range []models.Direction{models.Long, models.Short} {
		if i := lead(cands, dir, price, winning); i >= 0 {
			out = append(out, score(cands[i], price, winning))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SignalScore > out[j].SignalScore
	})
	return out
}
