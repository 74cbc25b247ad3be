package strategia

import (
	"reflect"
	"testing"

	"github.com/rewired-gh/strategia/internal/models"
)

func sanitized(dir models.Direction, entry, stop float64) models.Scenario {
	return models.Scenario{
		Direction:  dir,
		Entry:      entry,
		Stop:       stop,
		Confidence: 60,
		Momentum:   0.5,
		Status:     models.StatusActive,
		Source:     models.SourceSR,
	}
}

func TestReconcile_ShortSideDominates(t *testing.T) {
	e := newTestEngine(t)
	idx := e.BuildIndex("",
		[]any{map[string]any{"price": 100.0, "strength": 80.0}},
		[]any{map[string]any{"price": 100.05, "strength": 95.0}},
	)
	cands := e.Sanitize(e.GenerateCandidates(idx, 99), idx.Tick, nil)

	got := e.Reconcile(cands, idx, 99, "")
	long, short := findDir(t, got, models.Long), findDir(t, got, models.Short)

	if !approx(long.Stop, 100.06) || !approx(long.Entry, 100.1) {
		t.Errorf("long entry/stop = %v/%v, want 100.1/100.06", long.Entry, long.Stop)
	}
	if long.Status != models.StatusAdjusted {
		t.Errorf("long status = %q, want adjusted", long.Status)
	}
	if !approx(short.Entry, 99.94) || !approx(short.Stop, 100.07) {
		t.Errorf("short entry/stop = %v/%v, want 99.94/100.07", short.Entry, short.Stop)
	}
	if short.Status != models.StatusSuspended {
		t.Errorf("short status = %q, want suspended", short.Status)
	}
	if long.Note == "" || short.Note == "" || short.Trigger == "" {
		t.Error("reconciled scenarios should explain the adjustment")
	}
}

func TestReconcile_LongSideDominates(t *testing.T) {
	e := newTestEngine(t)
	idx := models.LevelIndex{
		Tick: 0.01,
		Levels: []models.Level{
			{Price: 100, Strength: 90},
			{Price: 100.3, Strength: 40},
		},
	}
	long := sanitized(models.Long, 100.05, 99.98)
	short := sanitized(models.Short, 100.19, 100.5)

	got := e.Reconcile([]models.Scenario{long, short}, idx, 150, "")
	if !reflect.DeepEqual(got[0], long) {
		t.Errorf("long should be untouched, got %+v", got[0])
	}
	if !approx(got[1].Entry, 100.05) || !approx(got[1].Stop, 100.5) {
		t.Errorf("short entry/stop = %v/%v, want 100.05/100.5", got[1].Entry, got[1].Stop)
	}
	if got[1].Status != models.StatusAdjusted {
		t.Errorf("short status = %q, want adjusted", got[1].Status)
	}
}

func TestReconcile_NoOp(t *testing.T) {
	e := newTestEngine(t)
	idx := models.LevelIndex{
		Tick:   0.01,
		Levels: []models.Level{{Price: 100, Strength: 90}},
	}
	tests := []struct {
		name  string
		cands []models.Scenario
	}{
		{"long only", []models.Scenario{sanitized(models.Long, 100.05, 99.98)}},
		{"short only", []models.Scenario{sanitized(models.Short, 99.95, 100.02)}},
		{"not contested", []models.Scenario{
			sanitized(models.Long, 100.05, 99.98),
			sanitized(models.Short, 110, 110.5),
		}},
		{"no level near either side", []models.Scenario{
			sanitized(models.Long, 90.05, 89.98),
			sanitized(models.Short, 90, 90.5),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Reconcile(tt.cands, idx, 100, "")
			if !reflect.DeepEqual(got, tt.cands) {
				t.Errorf("candidates changed:\ngot:  %+v\nwant: %+v", got, tt.cands)
			}
		})
	}
}

func findDir(t *testing.T, ss []models.Scenario, dir models.Direction) models.Scenario {
	t.Helper()
	for _, s := range ss {
		if s.Direction == dir {
			return s
		}
	}
	t.Fatalf("no %s scenario in %+v", dir, ss)
	return models.Scenario{}
}
