// Package circuit is the single entry point an evolutionary search engine
// drives. A Backend is fixed to one genome kind per run and exposes the four
// hooks the engine calls: Initialize, Evaluate, Mutate and Recombine.
package circuit

import (
	"fmt"
	"math/rand"

	"github.com/praveenmunagapati/eacirc/internal/fitness"
	"github.com/praveenmunagapati/eacirc/internal/gate"
	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/poly"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

type Config struct {
	Kind  genome.Kind  `json:"kind" yaml:"kind" toml:"kind"`
	Sizes genome.Sizes `json:"sizes" yaml:"sizes" toml:"sizes"`
	Gate  gate.Params  `json:"gate" yaml:"gate" toml:"gate"`
	Poly  poly.Params  `json:"polynomial" yaml:"polynomial" toml:"polynomial"`
	// MutationRate is the per-node (gate) or per-term (polynomial) edit
	// probability.
	MutationRate float64         `json:"mutation_rate" yaml:"mutation_rate" toml:"mutation_rate"`
	Trials       int             `json:"trials" yaml:"trials" toml:"trials"`
	Fitness      fitness.Options `json:"fitness" yaml:"fitness" toml:"fitness"`
}

func DefaultConfig(kind genome.Kind, sizes genome.Sizes) Config {
	return Config{
		Kind:         kind,
		Sizes:        sizes,
		Gate:         gate.DefaultParams(),
		Poly:         poly.DefaultParams(),
		MutationRate: 0.05,
		Trials:       1000,
		Fitness:      fitness.DefaultOptions(),
	}
}

type Backend struct {
	cfg Config
}

// New validates cfg for its kind and returns a backend.
func New(cfg Config) (*Backend, error) {
	kind, err := genome.ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	cfg.Kind = kind
	switch kind {
	case genome.KindGate:
		err = cfg.Gate.Validate(cfg.Sizes)
	case genome.KindPolynomial:
		err = cfg.Poly.Validate(cfg.Sizes)
	}
	if err != nil {
		return nil, err
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, genome.Misconfigured("mutation rate must be in [0, 1], got %v", cfg.MutationRate)
	}
	if cfg.Trials <= 0 {
		return nil, genome.Misconfigured("trials must be > 0, got %d", cfg.Trials)
	}
	if err := cfg.Fitness.Validate(); err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg}, nil
}

func (b *Backend) Kind() genome.Kind {
	return b.cfg.Kind
}

func (b *Backend) Config() Config {
	return b.cfg
}

// InputBytes is the sample size streams must yield for this backend.
func (b *Backend) InputBytes() int {
	if b.cfg.Kind == genome.KindPolynomial {
		return (b.cfg.Sizes.NumInputs + 7) / 8
	}
	return b.cfg.Sizes.NumInputs
}

// Initialize builds a random valid genome of the backend's kind.
func (b *Backend) Initialize(rng *rand.Rand) (genome.Genome, error) {
	if b.cfg.Kind == genome.KindGate {
		return wrap(gate.Initialize(rng, b.cfg.Sizes, b.cfg.Gate))
	}
	return wrap(poly.Initialize(rng, b.cfg.Sizes, b.cfg.Poly))
}

// Evaluate scores g over the configured trial count.
func (b *Backend) Evaluate(g genome.Genome, target, reference stream.Stream) (float64, error) {
	if err := b.owns(g); err != nil {
		return 0, err
	}
	return b.cfg.Fitness.Evaluate(g, target, reference, b.cfg.Trials)
}

// Mutate returns an edited copy of g.
func (b *Backend) Mutate(rng *rand.Rand, g genome.Genome) (genome.Genome, error) {
	if err := b.owns(g); err != nil {
		return nil, err
	}
	switch typed := g.(type) {
	case *gate.Genome:
		return wrap(gate.Mutate(rng, typed, b.cfg.Gate, b.cfg.MutationRate))
	case *poly.Genome:
		return wrap(poly.Mutate(rng, typed, b.cfg.Poly, b.cfg.MutationRate))
	}
	return nil, genome.Invalid("unsupported genome type %T", g)
}

// Recombine builds one child from two distinct parents.
func (b *Backend) Recombine(rng *rand.Rand, parentA, parentB genome.Genome) (genome.Genome, error) {
	for _, parent := range []genome.Genome{parentA, parentB} {
		if err := b.owns(parent); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
	}
	switch a := parentA.(type) {
	case *gate.Genome:
		return wrap(gate.Recombine(rng, a, parentB.(*gate.Genome), b.cfg.Gate))
	case *poly.Genome:
		return wrap(poly.Recombine(rng, a, parentB.(*poly.Genome), b.cfg.Poly))
	}
	return nil, genome.Invalid("unsupported genome type %T", parentA)
}

// RecombineAsexual is the single-parent crossover hook. No representation
// supports it.
func (b *Backend) RecombineAsexual(genome.Genome) (genome.Genome, error) {
	return nil, fmt.Errorf("%w: asexual crossover", genome.ErrNotApplicable)
}

// owns checks that g belongs to this backend's run.
func (b *Backend) owns(g genome.Genome) error {
	if g == nil {
		return genome.Invalid("nil genome")
	}
	if g.Kind() != b.cfg.Kind {
		return genome.Invalid("backend runs %s genomes, got %s", b.cfg.Kind, g.Kind())
	}
	if g.Sizes() != b.cfg.Sizes {
		return genome.Invalid("genome sizes %+v differ from run sizes %+v", g.Sizes(), b.cfg.Sizes)
	}
	switch g.(type) {
	case *gate.Genome, *poly.Genome:
		return nil
	}
	return genome.Invalid("unsupported genome type %T", g)
}

// wrap keeps a failed constructor from leaking a typed nil interface.
func wrap[G genome.Genome](g G, err error) (genome.Genome, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
