package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilianp07/districtsched/core/coordinator"
	"github.com/kilianp07/districtsched/core/entity"
)

func testReport(t *testing.T) Report {
	t.Helper()
	fixed, err := entity.NewFixedLoad("house-1", []float64{1.5, 2})
	if err != nil {
		t.Fatalf("fixed load: %v", err)
	}
	copy(fixed.Schedule(), []float64{1.5, 2})
	windows := []*coordinator.Result{{
		RunID:     "run-1",
		Algorithm: "exchange-consensus",
		Converged: true,
		Iterations: []coordinator.Iteration{
			{Index: 0, RNorm: 3, SNorm: 1, Objective: 210},
			{Index: 1, RNorm: 0.5, SNorm: 0.1, Objective: 200},
		},
	}}
	return NewReport([]entity.Entity{fixed}, windows)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testReport(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var back Report
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Schedules) != 1 || back.Schedules[0].Entity != "house-1" {
		t.Fatalf("unexpected schedules %+v", back.Schedules)
	}
	if len(back.Windows) != 1 || len(back.Windows[0].Iterations) != 2 {
		t.Fatalf("unexpected windows %+v", back.Windows)
	}
}

func TestWriteSchedulesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSchedulesCSV(&buf, testReport(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "entity,step,power_kw" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "house-1,0,1.5" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestWriteTraceCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTraceCSV(&buf, testReport(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "run-1,exchange-consensus,0,3,") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
