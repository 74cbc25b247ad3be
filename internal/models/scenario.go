// Package models defines the core domain entities: price levels, trade
// scenarios, backend snapshots and the derivations built from them.
package models

import (
	"errors"
	"fmt"
	"math"
)

// Direction is the side of a trade scenario.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid reports whether d is LONG or SHORT.
func (d Direction) Valid() bool {
	return d == Long || d == Short
}

// Sign is +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Status describes whether a scenario is tradable as displayed.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusAdjusted  Status = "adjusted"
)

// Source records where a scenario came from.
type Source string

const (
	SourceSR         Source = "sr"
	SourceMechanical Source = "mechanical"
	SourceBackend    Source = "backend"
)

// SignalBreakdown holds the composite score components, each in [0,1].
type SignalBreakdown struct {
	Prob   float64 `json:"prob"`
	Payoff float64 `json:"payoff"`
	Prox   float64 `json:"prox"`
}

// Scenario is a single ranked trade setup handed to the dashboard.
// TP1/TP2 are nil when no qualifying target exists; a missing target never
// means "target equals entry".
type Scenario struct {
	Direction    Direction        `json:"direction"`
	Entry        float64          `json:"entry"`
	Stop         float64          `json:"stop"`
	TP1          *float64         `json:"tp1,omitempty"`
	TP2          *float64         `json:"tp2,omitempty"`
	RR           float64          `json:"rr,omitempty"`
	RRNet        float64          `json:"rrNet,omitempty"`
	Confidence   float64          `json:"confidence"`
	SignalScore  int              `json:"signalScore"`
	Breakdown    *SignalBreakdown `json:"signalBreakdown,omitempty"`
	Momentum     float64          `json:"momentum"`
	Explanation  string           `json:"explanation,omitempty"`
	Trigger      string           `json:"trigger,omitempty"`
	Invalidation string           `json:"invalidation,omitempty"`
	Status       Status           `json:"status"`
	Source       Source           `json:"source"`
	Note         string           `json:"note,omitempty"`
}

// Clone returns a deep copy so pipeline stages never share pointers.
func (s Scenario) Clone() Scenario {
	c := s
	if s.TP1 != nil {
		v := *s.TP1
		c.TP1 = &v
	}
	if s.TP2 != nil {
		v := *s.TP2
		c.TP2 = &v
	}
	if s.Breakdown != nil {
		b := *s.Breakdown
		c.Breakdown = &b
	}
	return c
}

// Risk is the entry–stop distance in the scenario's favour (positive when sane).
func (s Scenario) Risk() float64 {
	return (s.Entry - s.Stop) * s.Direction.Sign()
}

// Float returns a pointer to v, for optional price fields.
func Float(v float64) *float64 {
	return &v
}

// Validate checks the output invariants of a scenario: a minimum entry–stop gap
// of two ticks, targets beyond entry, TP2 spaced at least minStep past TP1 and
// confidence/score bounds.
func (s *Scenario) Validate(tick, minStep float64) error {
	if !s.Direction.Valid() {
		return fmt.Errorf("invalid direction %q", s.Direction)
	}
	if !finitePositive(s.Entry) {
		return errors.New("entry must be a positive finite number")
	}
	if !finitePositive(s.Stop) {
		return errors.New("stop must be a positive finite number")
	}
	eps := tick * 1e-6
	if s.Risk() < 2*tick-eps {
		return fmt.Errorf("entry-stop gap %.8f below minimum %.8f", s.Risk(), 2*tick)
	}
	sign := s.Direction.Sign()
	if s.TP1 != nil && (*s.TP1-s.Entry)*sign <= 0 {
		return errors.New("tp1 must be beyond entry")
	}
	if s.TP2 != nil && (*s.TP2-s.Entry)*sign <= 0 {
		return errors.New("tp2 must be beyond entry")
	}
	if s.TP1 != nil && s.TP2 != nil {
		limit := *s.TP1 * (1 + sign*minStep)
		if (*s.TP2-limit)*sign < -eps {
			return errors.New("tp2 too close to tp1")
		}
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return errors.New("confidence must be between 0 and 100")
	}
	if s.SignalScore < 0 || s.SignalScore > 100 {
		return errors.New("signal score must be between 0 and 100")
	}
	if s.Momentum < 0 || s.Momentum > 1 {
		return errors.New("momentum must be between 0 and 1")
	}
	switch s.Status {
	case StatusActive, StatusSuspended, StatusAdjusted:
	default:
		return fmt.Errorf("invalid status %q", s.Status)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
