// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates recon configuration files.
//
// A configuration is a YAML document. Missing keys keep the values from
// Default, unknown keys are rejected, and every field is checked with
// go-playground/validator struct tags before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/archrecon/services/recon/evolution"
	"github.com/AleutianAI/archrecon/services/recon/graph"
	"github.com/AleutianAI/archrecon/services/recon/store"
	"github.com/AleutianAI/archrecon/services/recon/telemetry"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "RECON_CONFIG"

// ErrInvalidConfig indicates a configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// validate is shared by every Validate call. It is safe for concurrent use.
var validate = validator.New()

// =============================================================================
// Types
// =============================================================================

// Config is the complete recon configuration.
type Config struct {
	// Optimization is the relation the search optimizes.
	Optimization string `yaml:"optimization" json:"optimization" validate:"oneof=coupling similarity"`

	// Decomposition is flat for one level or deep for a full hierarchy.
	Decomposition string `yaml:"decomposition" json:"decomposition" validate:"oneof=flat deep"`

	// SeedMode picks the initial partition.
	SeedMode string `yaml:"seed_mode" json:"seed_mode" validate:"oneof=package candidates groups"`

	// Iteration is written into generated component names.
	Iteration int `yaml:"iteration" json:"iteration" validate:"gte=0"`

	// NamePrefix starts every generated component name.
	NamePrefix string `yaml:"name_prefix" json:"name_prefix" validate:"required,max=32"`

	Evolution EvolutionConfig       `yaml:"evolution" json:"evolution"`
	Weights   graph.RelationWeights `yaml:"weights" json:"weights"`
	Store     StoreConfig           `yaml:"store" json:"store"`
	Telemetry TelemetryConfig       `yaml:"telemetry" json:"telemetry"`
	Benchmark BenchmarkConfig       `yaml:"benchmark" json:"benchmark"`
	Server    ServerConfig          `yaml:"server" json:"server"`
	Logging   LoggingConfig         `yaml:"logging" json:"logging"`
}

// EvolutionConfig holds the search parameters.
type EvolutionConfig struct {
	PopulationSize    int     `yaml:"population_size" json:"population_size" validate:"min=2"`
	Generations       int     `yaml:"generations" json:"generations" validate:"gte=0"`
	OffspringFraction float64 `yaml:"offspring_fraction" json:"offspring_fraction" validate:"gt=0,lte=1"`
	CrossoverRate     float64 `yaml:"crossover_rate" json:"crossover_rate" validate:"gte=0,lte=1"`
	CrossoverPoints   int     `yaml:"crossover_points" json:"crossover_points" validate:"min=1"`
	MutationRate      float64 `yaml:"mutation_rate" json:"mutation_rate" validate:"gte=0,lte=1"`
	Seed              uint64  `yaml:"seed" json:"seed"`
	Workers           int     `yaml:"workers" json:"workers" validate:"gte=0"`
}

// StoreConfig selects the fact store. An empty path without in_memory
// uses the process-local memory store.
type StoreConfig struct {
	Path       string        `yaml:"path" json:"path"`
	InMemory   bool          `yaml:"in_memory" json:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes" json:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" json:"gc_interval" validate:"gte=0"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" json:"service_name" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" json:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" json:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" json:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
}

// BenchmarkConfig enables benchmark recording. Nothing is recorded unless
// a CSV path or an InfluxDB URL is set.
type BenchmarkConfig struct {
	CSVPath      string `yaml:"csv_path" json:"csv_path"`
	InfluxURL    string `yaml:"influx_url" json:"influx_url" validate:"omitempty,url"`
	InfluxToken  string `yaml:"influx_token" json:"influx_token"`
	InfluxOrg    string `yaml:"influx_org" json:"influx_org" validate:"required_with=InfluxURL"`
	InfluxBucket string `yaml:"influx_bucket" json:"influx_bucket" validate:"required_with=InfluxURL"`
	Every        int    `yaml:"every" json:"every" validate:"gte=0"`
}

// Enabled reports whether any recorder is configured.
func (b BenchmarkConfig) Enabled() bool {
	return b.CSVPath != "" || b.InfluxURL != ""
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" json:"port" validate:"min=1,max=65535"`

	// RateLimit is decompose requests per second. 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" json:"burst" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir" json:"dir"`
	JSON  bool   `yaml:"json" json:"json"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Optimization:  "coupling",
		Decomposition: "deep",
		SeedMode:      "package",
		NamePrefix:    "COH",
		Evolution: EvolutionConfig{
			PopulationSize:    evolution.DefaultPopulationSize,
			Generations:       evolution.DefaultGenerations,
			OffspringFraction: evolution.DefaultOffspringFraction,
			CrossoverRate:     evolution.DefaultCrossoverRate,
			CrossoverPoints:   evolution.DefaultCrossoverPoints,
			MutationRate:      evolution.DefaultMutationRate,
			Seed:              1,
		},
		Weights: graph.DefaultRelationWeights(),
		Store: StoreConfig{
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "recon",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
		Server: ServerConfig{
			Port:      8090,
			RateLimit: 2,
			Burst:     4,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path, or the file named by RECON_CONFIG when path is empty.
// With neither set it returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, len(fields))
	for i, fe := range fields {
		msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// =============================================================================
// Conversions
// =============================================================================

// Kind returns the relation kind to optimize.
func (c Config) Kind() graph.Kind {
	if c.Optimization == "similarity" {
		return graph.KindSimilarity
	}
	return graph.KindCoupling
}

// Hierarchical reports whether decomposition recurses to a single root.
func (c Config) Hierarchical() bool {
	return c.Decomposition == "deep"
}

// EvolutionOptions returns engine options for the configured search.
func (c Config) EvolutionOptions() evolution.Options {
	e := c.Evolution
	return evolution.Options{
		PopulationSize:    e.PopulationSize,
		Generations:       e.Generations,
		OffspringFraction: e.OffspringFraction,
		CrossoverRate:     e.CrossoverRate,
		CrossoverPoints:   e.CrossoverPoints,
		MutationRate:      e.MutationRate,
		Seed:              e.Seed,
		Workers:           e.Workers,
	}
}

// BadgerConfig returns store settings, or false when the memory store
// should be used.
func (c Config) BadgerConfig() (store.BadgerConfig, bool) {
	s := c.Store
	switch {
	case s.InMemory:
		return store.InMemoryBadgerConfig(), true
	case s.Path == "":
		return store.BadgerConfig{}, false
	}
	bc := store.DefaultBadgerConfig(s.Path)
	bc.SyncWrites = s.SyncWrites
	bc.GCInterval = s.GCInterval
	return bc, true
}

// TelemetryOptions returns exporter settings.
func (c Config) TelemetryOptions() telemetry.Config {
	t := telemetry.DefaultConfig()
	t.ServiceName = c.Telemetry.ServiceName
	t.TraceExporter = c.Telemetry.TraceExporter
	t.MetricExporter = c.Telemetry.MetricExporter
	if c.Telemetry.OTLPEndpoint != "" {
		t.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	}
	return t
}
