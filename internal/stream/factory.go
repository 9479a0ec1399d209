package stream

import (
	"strings"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Stream types accepted by New.
const (
	TypeConstantTrue      = "constant-true"
	TypeConstantFalse     = "constant-false"
	TypeCounter           = "counter"
	TypePRNG              = "prng"
	TypeSACRandomPosition = "sac-random-position"
	TypeSACFixedPosition  = "sac-fixed-position"
	TypeSACAllPositions   = "sac-all-positions"
	TypeFile              = "file"
	TypePrimitive         = "primitive"
)

var typeAliases = map[string]string{
	"true-stream":          TypeConstantTrue,
	"false-stream":         TypeConstantFalse,
	"pcg32-stream":         TypePRNG,
	"mt19937-stream":       TypePRNG,
	"sac":                  TypeSACRandomPosition,
	"sac-2d-all-positions": TypeSACAllPositions,
	"file-stream":          TypeFile,
}

// Types lists the canonical stream type names.
func Types() []string {
	return []string{
		TypeConstantTrue, TypeConstantFalse, TypeCounter, TypePRNG,
		TypeSACRandomPosition, TypeSACFixedPosition, TypeSACAllPositions,
		TypeFile, TypePrimitive,
	}
}

// Config selects a stream kind and its parameters.
type Config struct {
	Type       string `json:"type" yaml:"type" toml:"type"`
	OutputSize int    `json:"output_size" yaml:"output_size" toml:"output_size"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	// Position is the absolute bit offset flipped by sac-fixed-position.
	Position  int    `json:"position,omitempty" yaml:"position,omitempty" toml:"position,omitempty"`
	Primitive string `json:"primitive,omitempty" yaml:"primitive,omitempty" toml:"primitive,omitempty"`
	Key       string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Nonce     string `json:"nonce,omitempty" yaml:"nonce,omitempty" toml:"nonce,omitempty"`
	Rounds    int    `json:"rounds,omitempty" yaml:"rounds,omitempty" toml:"rounds,omitempty"`
}

// CanonicalType resolves aliases; unknown names fail with ErrConfiguration.
func CanonicalType(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := typeAliases[name]; ok {
		return alias, nil
	}
	switch name {
	case TypeConstantTrue, TypeConstantFalse, TypeCounter, TypePRNG,
		TypeSACRandomPosition, TypeSACFixedPosition, TypeSACAllPositions,
		TypeFile, TypePrimitive:
		return name, nil
	}
	return "", genome.Misconfigured("requested stream %q does not exist", raw)
}

// Validate checks what can be checked without opening files or drawing
// seeds.
func (c Config) Validate() error {
	kind, err := CanonicalType(c.Type)
	if err != nil {
		return err
	}
	if c.OutputSize <= 0 {
		return genome.Misconfigured("stream %s: output size must be > 0, got %d", kind, c.OutputSize)
	}
	switch kind {
	case TypeSACRandomPosition, TypeSACFixedPosition:
		if c.OutputSize%2 != 0 {
			return genome.Misconfigured("stream %s needs an even output size, got %d", kind, c.OutputSize)
		}
	case TypeFile:
		if strings.TrimSpace(c.Path) == "" {
			return genome.Misconfigured("stream %s requires a path", kind)
		}
	case TypePrimitive:
		if strings.TrimSpace(c.Primitive) == "" {
			return genome.Misconfigured("stream %s requires a primitive name", kind)
		}
	}
	return nil
}

// New builds the stream cfg describes. Seeded kinds draw their seed from
// seeds, which must not be nil for them.
func New(cfg Config, seeds *SeedSource) (Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, _ := CanonicalType(cfg.Type)
	osize := cfg.OutputSize
	switch kind {
	case TypeConstantTrue:
		return NewConstant(0xFF, osize), nil
	case TypeConstantFalse:
		return NewConstant(0x00, osize), nil
	case TypeCounter:
		return NewCounter(osize), nil
	case TypeFile:
		return OpenFile(cfg.Path, osize)
	}

	if seeds == nil {
		return nil, genome.Misconfigured("stream %s needs a seed source", kind)
	}
	switch kind {
	case TypePRNG:
		return NewPRNG(seeds, osize), nil
	case TypeSACRandomPosition:
		return NewSACRandomPosition(seeds, osize)
	case TypeSACFixedPosition:
		return NewSACFixedPosition(seeds, osize, cfg.Position)
	case TypeSACAllPositions:
		return NewSACAllPositions(seeds, osize), nil
	default:
		return NewPrimitive(PrimitiveConfig{
			Name:   cfg.Primitive,
			Key:    cfg.Key,
			Nonce:  cfg.Nonce,
			Rounds: cfg.Rounds,
		}, seeds, osize)
	}
}
