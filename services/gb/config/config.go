// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the settings of the gbd binary.
//
// Settings resolve in the order defaults, then file, then environment:
//
//	cfg, err := config.Load("gb.yaml")
//	if err != nil {
//	    return err
//	}
//	gb := engine.NewParallel[C](variant, cfg.EngineOptions(logger)...)
//
// Files may be YAML or JSON. Durations are Go duration strings ("30s") in
// YAML and nanoseconds in JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/groebner/pkg/logging"
	"github.com/AleutianAI/groebner/services/gb/dist"
	"github.com/AleutianAI/groebner/services/gb/engine"
	"github.com/AleutianAI/groebner/services/gb/telemetry"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Strategy names.
const (
	StrategySequential  = "sequential"
	StrategyParallel    = "parallel"
	StrategyDistributed = "distributed"
)

// Config is the top-level gbd configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after Load.
type Config struct {
	// Strategy selects the orchestrator.
	Strategy string `json:"strategy" yaml:"strategy" validate:"required,oneof=sequential parallel distributed"`

	// Threads is the worker count of the parallel strategy.
	Threads int `json:"threads" yaml:"threads" validate:"min=1,max=1024"`

	// Minimize returns reduced bases. Off yields the raw accumulated basis.
	Minimize bool `json:"minimize" yaml:"minimize"`

	// Distributed holds coordinator and worker settings.
	Distributed DistributedConfig `json:"distributed" yaml:"distributed"`

	// Logging configures pkg/logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry configures the otel exporters.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// DistributedConfig holds coordinator and worker settings.
type DistributedConfig struct {
	Host         string        `json:"host" yaml:"host" validate:"required"`
	Port         int           `json:"port" yaml:"port" validate:"min=0,max=65535"`
	PairTimeout  time.Duration `json:"pair_timeout" yaml:"pair_timeout" validate:"gt=0"`
	MinWorkers   int           `json:"min_workers" yaml:"min_workers" validate:"min=0"`
	WorkerWait   time.Duration `json:"worker_wait" yaml:"worker_wait" validate:"min=0"`
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" validate:"gt=0"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
}

// LoggingConfig mirrors logging.Config in file form.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"loglevel"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=auto text json"`
	Dir    string `json:"dir" yaml:"dir"`
	Quiet  bool   `json:"quiet" yaml:"quiet"`
}

// TelemetryConfig mirrors telemetry.Config in file form.
type TelemetryConfig struct {
	TraceExporter  string `json:"trace_exporter" yaml:"trace_exporter" validate:"oneof=otlp jaeger stdout none"`
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `json:"otlp_endpoint" yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	Environment    string `json:"environment" yaml:"environment"`
}

// =============================================================================
// Validation
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})
}

// Validate checks every field constraint.
//
// Outputs:
//
//	error - ErrInvalid listing each failing field by its YAML path, or nil.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", path, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", path, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the built-in configuration.
func Default() Config {
	dopts := dist.DefaultOptions()
	tel := telemetry.DefaultConfig()
	return Config{
		Strategy: StrategySequential,
		Threads:  2,
		Minimize: true,
		Distributed: DistributedConfig{
			Host:         "127.0.0.1",
			Port:         7420,
			PairTimeout:  dopts.PairTimeout,
			MinWorkers:   dopts.MinWorkers,
			WorkerWait:   dopts.WorkerWait,
			TickInterval: dopts.TickInterval,
			PollInterval: 20 * time.Millisecond,
		},
		Logging: LoggingConfig{Level: "info", Format: string(logging.FormatAuto)},
		Telemetry: TelemetryConfig{
			TraceExporter:  tel.TraceExporter,
			MetricExporter: tel.MetricExporter,
			OTLPEndpoint:   tel.OTLPEndpoint,
			Environment:    tel.Environment,
		},
	}
}

// Load resolves the configuration.
//
// Description:
//
//	Starts from Default, overlays the file at path when path is non-empty,
//	applies GB_* environment variables and validates the result. A missing
//	file is an error; callers that want defaults pass "".
//
// Inputs:
//
//	path - YAML or JSON file, or "".
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil if the file cannot be read or parsed, or if the result
//	is invalid (wrapping ErrInvalid).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

// applyEnv applies GB_* overrides. Unlike file values, a malformed
// variable is reported rather than ignored.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("GB_STRATEGY"); v != "" {
		cfg.Strategy = strings.ToLower(v)
	}
	if v := os.Getenv("GB_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GB_THREADS=%q", ErrInvalid, v)
		}
		cfg.Threads = n
	}
	if v := os.Getenv("GB_HOST"); v != "" {
		cfg.Distributed.Host = v
	}
	if v := os.Getenv("GB_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GB_PORT=%q", ErrInvalid, v)
		}
		cfg.Distributed.Port = n
	}
	if v := os.Getenv("GB_PAIR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: GB_PAIR_TIMEOUT=%q", ErrInvalid, v)
		}
		cfg.Distributed.PairTimeout = d
	}
	if v := os.Getenv("GB_MIN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GB_MIN_WORKERS=%q", ErrInvalid, v)
		}
		cfg.Distributed.MinWorkers = n
	}
	if v := os.Getenv("GB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// =============================================================================
// Conversions
// =============================================================================

// EngineOptions returns the engine options for the sequential and parallel
// strategies.
func (c Config) EngineOptions(logger *slog.Logger) []engine.Option {
	opts := []engine.Option{engine.WithThreads(c.Threads)}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	if !c.Minimize {
		opts = append(opts, engine.WithoutMinimize())
	}
	return opts
}

// Addr returns host:port.
func (d DistributedConfig) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// CoordinatorOptions returns the dist.Options of the coordinator.
func (c Config) CoordinatorOptions(logger *slog.Logger) dist.Options {
	return dist.Options{
		PairTimeout:  c.Distributed.PairTimeout,
		MinWorkers:   c.Distributed.MinWorkers,
		WorkerWait:   c.Distributed.WorkerWait,
		TickInterval: c.Distributed.TickInterval,
		Minimize:     c.Minimize,
		Logger:       logger,
	}
}

// WorkerOptions converts d to dist.WorkerOptions.
func (d DistributedConfig) WorkerOptions(id string, logger *slog.Logger) dist.WorkerOptions {
	return dist.WorkerOptions{ID: id, PollInterval: d.PollInterval, Logger: logger}
}

// ToLogging converts l to logging.Config for the given service.
func (l LoggingConfig) ToLogging(service string) logging.Config {
	level, _ := logging.ParseLevel(l.Level)
	format := logging.Format(l.Format)
	if format == "" {
		format = logging.FormatAuto
	}
	return logging.Config{
		Level:   level,
		Format:  format,
		LogDir:  l.Dir,
		Service: service,
		Quiet:   l.Quiet,
	}
}

// ToTelemetry converts t to telemetry.Config for the given service.
func (t TelemetryConfig) ToTelemetry(service string) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = service
	cfg.TraceExporter = t.TraceExporter
	cfg.MetricExporter = t.MetricExporter
	cfg.OTLPEndpoint = t.OTLPEndpoint
	if t.Environment != "" {
		cfg.Environment = t.Environment
	}
	return cfg
}
