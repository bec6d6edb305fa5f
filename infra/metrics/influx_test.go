package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/districtsched/core/metrics"
)

func TestInfluxSink_RecordIteration(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	err := sink.RecordIteration(metrics.IterationRecord{
		RunID:     "run-1",
		Algorithm: "exchange-consensus",
		Index:     4,
		RNorm:     0.5,
		SNorm:     0.25,
		Objective: 199.875,
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	for _, want := range []string{
		"scheduling_iteration",
		`algorithm=exchange-consensus`,
		`run_id=run-1`,
		"r_norm=0.5",
		"objective=199.875",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("line protocol missing %q: %s", want, body)
		}
	}
}

func TestInfluxSink_RecordRun(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	err := sink.RecordRun(metrics.RunRecord{
		RunID:      "run-1",
		Algorithm:  "exchange-consensus",
		Iterations: 32,
		Converged:  true,
		Duration:   1200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	for _, want := range []string{"scheduling_run", "converged=true", "iterations=32i", "duration_ms=1200i"} {
		if !strings.Contains(body, want) {
			t.Errorf("line protocol missing %q: %s", want, body)
		}
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"influxdb","status":"pass"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL})
	if _, ok := sink.(*InfluxSink); !ok {
		t.Fatalf("expected InfluxSink when health passes, got %T", sink)
	}
}

func TestNewInfluxSinkWithFallback_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL})
	if _, ok := sink.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink fallback, got %T", sink)
	}
}
