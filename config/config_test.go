package config

import (
	"strings"
	"testing"

	"fresnel/asset"
)

const validYAML = `
workers:
  - 127.0.0.1:19401
  - 127.0.0.1:19402
image:
  name: out
  width: 64
  height: 64
  buffers: [color, albedo]
bounds:
  min: [-10, -10, -10]
  max: [10, 10, 10]
runaway: 0.2
stats_interval_ms: 500
max_intervals: 3
`

func TestLoadValid(t *testing.T) {
	res := asset.NewResourceFromStream("config.yaml", strings.NewReader(validYAML))
	cfg, err := Load(res)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if cfg.WorkerCount() != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.WorkerCount())
	}
	addr, err := cfg.WorkerAddr(0)
	if err != nil || addr != "127.0.0.1:19401" {
		t.Fatalf("unexpected worker addr: %q, err=%v", addr, err)
	}
}

func TestWorkerAddrDefaultsPort(t *testing.T) {
	cfg := &Config{Workers: []string{"workerhost"}}
	addr, err := cfg.WorkerAddr(0)
	if err != nil {
		t.Fatalf("WorkerAddr: %s", err)
	}
	if addr != "workerhost:19400" {
		t.Fatalf("expected default port 19400, got %q", addr)
	}
}

func TestValidateRejectsNoWorkers(t *testing.T) {
	cfg := &Config{}
	cfg.Image.Width, cfg.Image.Height, cfg.Image.Name = 1, 1, "x"
	cfg.Bounds.Max = [3]float32{1, 1, 1}
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty worker list")
	}
}

func TestValidateRejectsDegenerateBounds(t *testing.T) {
	cfg := &Config{Workers: []string{"host"}}
	cfg.Image.Width, cfg.Image.Height, cfg.Image.Name = 1, 1, "x"
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for degenerate bounds")
	}
}

func TestValidateRejectsNegativeRunaway(t *testing.T) {
	cfg := &Config{Workers: []string{"host"}, Runaway: -1}
	cfg.Image.Width, cfg.Image.Height, cfg.Image.Name = 1, 1, "x"
	cfg.Bounds.Max = [3]float32{1, 1, 1}
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative runaway")
	}
}
