// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/groebner/pkg/logging"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GB_STRATEGY", "GB_THREADS", "GB_HOST", "GB_PORT", "GB_PAIR_TIMEOUT", "GB_MIN_WORKERS", "GB_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, StrategySequential, cfg.Strategy)
	assert.Equal(t, 2, cfg.Threads)
	assert.True(t, cfg.Minimize)
	assert.Equal(t, "127.0.0.1:7420", cfg.Distributed.Addr())
	assert.Equal(t, 30*time.Second, cfg.Distributed.PairTimeout)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "gb.yaml", `
strategy: distributed
threads: 8
minimize: false
distributed:
  host: 0.0.0.0
  port: 9000
  pair_timeout: 5s
  min_workers: 3
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StrategyDistributed, cfg.Strategy)
	assert.Equal(t, 8, cfg.Threads)
	assert.False(t, cfg.Minimize)
	assert.Equal(t, "0.0.0.0:9000", cfg.Distributed.Addr())
	assert.Equal(t, 5*time.Second, cfg.Distributed.PairTimeout)
	assert.Equal(t, 3, cfg.Distributed.MinWorkers)
	// Unset keys keep their defaults.
	assert.Equal(t, Default().Distributed.TickInterval, cfg.Distributed.TickInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_JSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "gb.json", `{"strategy": "parallel", "threads": 4, "distributed": {"pair_timeout": 1000000000}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StrategyParallel, cfg.Strategy)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, time.Second, cfg.Distributed.PairTimeout)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "strategy: [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "invalid.yaml", "strategy: magic\n"))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "strategy")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "gb.yaml", "strategy: sequential\nthreads: 2\n")
	t.Setenv("GB_STRATEGY", "PARALLEL")
	t.Setenv("GB_THREADS", "6")
	t.Setenv("GB_HOST", "10.0.0.5")
	t.Setenv("GB_PORT", "8123")
	t.Setenv("GB_PAIR_TIMEOUT", "750ms")
	t.Setenv("GB_MIN_WORKERS", "4")
	t.Setenv("GB_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StrategyParallel, cfg.Strategy)
	assert.Equal(t, 6, cfg.Threads)
	assert.Equal(t, "10.0.0.5:8123", cfg.Distributed.Addr())
	assert.Equal(t, 750*time.Millisecond, cfg.Distributed.PairTimeout)
	assert.Equal(t, 4, cfg.Distributed.MinWorkers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MalformedEnv(t *testing.T) {
	for _, kv := range [][2]string{
		{"GB_THREADS", "many"},
		{"GB_PORT", "http"},
		{"GB_PAIR_TIMEOUT", "soon"},
		{"GB_MIN_WORKERS", "-x"},
	} {
		t.Run(kv[0], func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unknown strategy", func(c *Config) { c.Strategy = "gpu" }, "strategy"},
		{"zero threads", func(c *Config) { c.Threads = 0 }, "threads"},
		{"empty host", func(c *Config) { c.Distributed.Host = "" }, "distributed.host"},
		{"port out of range", func(c *Config) { c.Distributed.Port = 70000 }, "distributed.port"},
		{"zero pair timeout", func(c *Config) { c.Distributed.PairTimeout = 0 }, "distributed.pair_timeout"},
		{"negative min workers", func(c *Config) { c.Distributed.MinWorkers = -1 }, "distributed.min_workers"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad exporter", func(c *Config) { c.Telemetry.MetricExporter = "graphite" }, "telemetry.metric_exporter"},
		{"otlp without endpoint", func(c *Config) {
			c.Telemetry.TraceExporter = "otlp"
			c.Telemetry.OTLPEndpoint = ""
		}, "telemetry.otlp_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := Default()
	cfg.Threads = 3
	cfg.Minimize = false
	cfg.Logging = LoggingConfig{Level: "debug", Format: "text", Dir: "/tmp/gb", Quiet: true}

	assert.Len(t, cfg.EngineOptions(nil), 2)

	co := cfg.CoordinatorOptions(nil)
	assert.Equal(t, cfg.Distributed.PairTimeout, co.PairTimeout)
	assert.False(t, co.Minimize)

	wo := cfg.Distributed.WorkerOptions("w1", nil)
	assert.Equal(t, "w1", wo.ID)
	assert.Equal(t, cfg.Distributed.PollInterval, wo.PollInterval)

	lc := cfg.Logging.ToLogging("gbd")
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatText, lc.Format)
	assert.Equal(t, "gbd", lc.Service)
	assert.True(t, lc.Quiet)

	tc := cfg.Telemetry.ToTelemetry("gbd-worker")
	assert.Equal(t, "gbd-worker", tc.ServiceName)
	assert.Equal(t, cfg.Telemetry.MetricExporter, tc.MetricExporter)
}
