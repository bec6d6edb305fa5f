package model

import (
	"testing"
	"time"
)

func TestNewTimeGridValidation(t *testing.T) {
	cases := []struct {
		name string
		step time.Duration
		simu int
		op   int
	}{
		{"zero step", 0, 4, 2},
		{"zero op horizon", time.Hour, 4, 0},
		{"op horizon exceeds simulation", time.Hour, 2, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTimeGrid(tc.step, tc.simu, tc.op); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestWindowStepsTruncatesFinalWindow(t *testing.T) {
	g, err := NewTimeGrid(time.Hour, 5, 2)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	want := []int{2, 2, 1}
	for i, steps := range want {
		if got := g.WindowSteps(); got != steps {
			t.Fatalf("window %d: got %d steps, want %d", i, got, steps)
		}
		if i < len(want)-1 {
			if err := g.Advance(steps); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
	}
	if err := g.Advance(2); err == nil {
		t.Fatalf("expected an error advancing past the horizon")
	}
	g.Reset()
	if g.CurrentStep() != 0 || g.WindowSteps() != 2 {
		t.Fatalf("reset left grid at step %d with %d window steps", g.CurrentStep(), g.WindowSteps())
	}
}

func TestGlobalStepOffsetsFromCurrent(t *testing.T) {
	g, _ := NewTimeGrid(15*time.Minute, 8, 4)
	if err := g.Advance(4); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := g.GlobalStep(3); got != 7 {
		t.Fatalf("global step = %d, want 7", got)
	}
	if g.Hours() != 0.25 {
		t.Fatalf("hours = %v, want 0.25", g.Hours())
	}
}

func TestScheduleWindowRoundTrip(t *testing.T) {
	g, _ := NewTimeGrid(time.Hour, 5, 2)
	s := NewSchedule(g.SimuHorizon)
	s.SetWindow(g, []float64{1, 2})
	if err := g.Advance(2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	s.SetWindow(g, []float64{3, 4})
	if err := g.Advance(2); err != nil {
		t.Fatalf("advance: %v", err)
	}
	// final window spans one step but the optimizer still hands back a full
	// operating horizon of values; the overhang must be dropped
	s.SetWindow(g, []float64{5, 99})
	want := Schedule{1, 2, 3, 4, 5}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("schedule = %v, want %v", s, want)
		}
	}
	if got := s.Window(g); len(got) != 1 || got[0] != 5 {
		t.Fatalf("final window = %v, want [5]", got)
	}
	c := s.Clone()
	c[0] = -1
	if s[0] != 1 {
		t.Fatalf("clone aliases the original")
	}
}
