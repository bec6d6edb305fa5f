package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/districtsched/core/metrics"
	"github.com/kilianp07/districtsched/infra/logger"
)

// InfluxSink writes optimization telemetry to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig holds the connection parameters of an InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so a missing telemetry store never
// blocks scheduling.
func NewInfluxSinkWithFallback(cfg InfluxConfig) metrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return metrics.NopSink{}
	}
	return sink
}

// RecordIteration writes the iteration as one point.
func (s *InfluxSink) RecordIteration(rec metrics.IterationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scheduling_iteration").
		AddTag("run_id", rec.RunID).
		AddTag("algorithm", rec.Algorithm).
		AddField("index", rec.Index).
		AddField("r_norm", round6(rec.RNorm)).
		AddField("s_norm", round6(rec.SNorm)).
		AddField("objective", round6(rec.Objective)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the run summary as one point.
func (s *InfluxSink) RecordRun(rec metrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scheduling_run").
		AddTag("run_id", rec.RunID).
		AddTag("algorithm", rec.Algorithm).
		AddTag("converged", strconv.FormatBool(rec.Converged)).
		AddField("iterations", rec.Iterations).
		AddField("failed", rec.Failed).
		AddField("duration_ms", rec.Duration.Milliseconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
