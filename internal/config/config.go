// Package config loads run configuration from YAML or TOML files. Loading
// starts from defaults, decodes the file over them, applies EACIRC_*
// environment overrides and validates the result. Every failure wraps
// genome.ErrConfiguration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/praveenmunagapati/eacirc/internal/circuit"
	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

// Environment variables read by Load and ApplyEnv.
const (
	EnvSeed    = "EACIRC_SEED"
	EnvTrials  = "EACIRC_TRIALS"
	EnvWorkers = "EACIRC_WORKERS"
	EnvStore   = "EACIRC_STORE"
	EnvDBPath  = "EACIRC_DB_PATH"
)

type Config struct {
	Run       RunConfig      `json:"run" yaml:"run" toml:"run"`
	Circuit   circuit.Config `json:"circuit" yaml:"circuit" toml:"circuit"`
	Target    stream.Config  `json:"target" yaml:"target" toml:"target"`
	Reference stream.Config  `json:"reference" yaml:"reference" toml:"reference"`
	Store     StoreConfig    `json:"store" yaml:"store" toml:"store"`
}

type RunConfig struct {
	Seed uint64 `json:"seed" yaml:"seed" toml:"seed"`
	// Workers caps concurrent genome scoring; 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`
	// DatasetSamples is how many samples are materialized per stream before
	// batch scoring. 0 means one sample per trial.
	DatasetSamples int `json:"dataset_samples" yaml:"dataset_samples" toml:"dataset_samples"`
}

type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind" toml:"kind"`
	Path string `json:"path" yaml:"path" toml:"path"`
}

// Default is a gate-circuit run over 16 input bytes that separates a
// strict-avalanche stream from the PRNG.
func Default() Config {
	return Config{
		Run:       RunConfig{Seed: 1},
		Circuit:   circuit.DefaultConfig(genome.KindGate, genome.Sizes{NumInputs: 16, NumOutputs: 1}),
		Target:    stream.Config{Type: stream.TypeSACRandomPosition},
		Reference: stream.Config{Type: stream.TypePRNG},
		Store:     StoreConfig{Kind: "memory"},
	}
}

// Load reads path, decoding YAML for .yaml/.yml and TOML for .toml.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config file: %w", genome.ErrConfiguration, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the named format ("yaml" or "toml") over Default,
// then applies env overrides and validates.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: parse yaml: %v", genome.ErrConfiguration, err)
		}
	case "toml":
		meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%w: parse toml: %v", genome.ErrConfiguration, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%w: unknown toml keys %v", genome.ErrConfiguration, undecoded)
		}
	default:
		return Config{}, fmt.Errorf("%w: unsupported config format %q", genome.ErrConfiguration, format)
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays the EACIRC_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if raw, ok := lookup(EnvSeed); ok && raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", genome.ErrConfiguration, EnvSeed, raw, err)
		}
		cfg.Run.Seed = seed
	}
	if raw, ok := lookup(EnvTrials); ok && raw != "" {
		trials, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", genome.ErrConfiguration, EnvTrials, raw, err)
		}
		cfg.Circuit.Trials = trials
	}
	if raw, ok := lookup(EnvWorkers); ok && raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", genome.ErrConfiguration, EnvWorkers, raw, err)
		}
		cfg.Run.Workers = workers
	}
	if raw, ok := lookup(EnvStore); ok && raw != "" {
		cfg.Store.Kind = raw
	}
	if raw, ok := lookup(EnvDBPath); ok && raw != "" {
		cfg.Store.Path = raw
	}
	return nil
}

// Normalize fills stream output sizes from the circuit, then validates.
func (c *Config) Normalize() error {
	backend, err := circuit.New(c.Circuit)
	if err != nil {
		return err
	}
	c.Circuit = backend.Config()
	for _, sc := range []*stream.Config{&c.Target, &c.Reference} {
		if sc.OutputSize == 0 {
			sc.OutputSize = backend.InputBytes()
		}
	}
	return c.Validate()
}

func (c Config) Validate() error {
	backend, err := circuit.New(c.Circuit)
	if err != nil {
		return err
	}
	for name, sc := range map[string]stream.Config{"target": c.Target, "reference": c.Reference} {
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("%s stream: %w", name, err)
		}
		if sc.OutputSize != backend.InputBytes() {
			return genome.Misconfigured("%s stream yields %d bytes, circuit reads %d", name, sc.OutputSize, backend.InputBytes())
		}
	}
	if c.Run.Workers < 0 {
		return genome.Misconfigured("workers must be >= 0, got %d", c.Run.Workers)
	}
	if c.Run.DatasetSamples < 0 {
		return genome.Misconfigured("dataset samples must be >= 0, got %d", c.Run.DatasetSamples)
	}
	if c.Run.DatasetSamples > 0 && c.Run.DatasetSamples < c.Circuit.Trials {
		return genome.Misconfigured("dataset samples (%d) cannot cover %d trials", c.Run.DatasetSamples, c.Circuit.Trials)
	}
	switch c.Store.Kind {
	case "", "memory":
	case "bolt", "bbolt", "sqlite":
		if c.Store.Path == "" {
			return genome.Misconfigured("store %s needs a path", c.Store.Kind)
		}
	default:
		return genome.Misconfigured("unsupported store kind %q", c.Store.Kind)
	}
	return nil
}

// Samples is the dataset length used for batch scoring.
func (c Config) Samples() int {
	if c.Run.DatasetSamples > 0 {
		return c.Run.DatasetSamples
	}
	return c.Circuit.Trials
}

// Save writes cfg in the format implied by path's extension.
func Save(path string, cfg Config) error {
	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case "toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	default:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}
