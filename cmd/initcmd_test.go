package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/districtsched/config"
)

func TestSampleConfigLoads(t *testing.T) {
	raw, err := yaml.Marshal(sampleConfig())
	if err != nil {
		t.Fatalf("marshal sample: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if cfg.Run.Algorithm != "exchange-consensus" {
		t.Fatalf("algorithm = %s", cfg.Run.Algorithm)
	}
	if len(cfg.Scenario.Entities) != 2 {
		t.Fatalf("entities = %d", len(cfg.Scenario.Entities))
	}
	if got := len(cfg.Scenario.Entities[0].Demand); got != cfg.Scenario.SimuHorizon {
		t.Fatalf("demand length %d, horizon %d", got, cfg.Scenario.SimuHorizon)
	}
}
