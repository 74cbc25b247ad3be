package models

// Level is a support or resistance price with a strength on a 0–100 scale.
type Level struct {
	Price    float64 `json:"price"`
	Strength float64 `json:"strength"`
}

// LevelIndex is the sorted, deduplicated set of levels for one derivation,
// together with the symbol's minimum price increment.
type LevelIndex struct {
	Levels []Level `json:"levels"`
	Tick   float64 `json:"tick"`
}

// Below returns the levels strictly below price, nearest first.
func (idx LevelIndex) Below(price float64) []Level {
	var out []Level
	for i := len(idx.Levels) - 1; i >= 0; i-- {
		if idx.Levels[i].Price < price {
			out = append(out, idx.Levels[i])
		}
	}
	return out
}

// Above returns the levels strictly above price, nearest first.
func (idx LevelIndex) Above(price float64) []Level {
	var out []Level
	for _, l := range idx.Levels {
		if l.Price > price {
			out = append(out, l)
		}
	}
	return out
}

// Beyond returns the levels past price in the given direction, nearest first.
func (idx LevelIndex) Beyond(price float64, dir Direction) []Level {
	if dir == Short {
		return idx.Below(price)
	}
	return idx.Above(price)
}
