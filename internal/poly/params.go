package poly

import (
	"github.com/praveenmunagapati/eacirc/internal/genome"
)

type Params struct {
	// MaxTerms bounds every polynomial's term count.
	MaxTerms int `json:"max_terms" yaml:"max_terms" toml:"max_terms"`
	// InitMaxTerms bounds the term count drawn by Initialize.
	InitMaxTerms int `json:"init_max_terms" yaml:"init_max_terms" toml:"init_max_terms"`
	// InitTermStopProbability ends a fresh term after each added variable.
	InitTermStopProbability float64 `json:"init_term_stop_probability" yaml:"init_term_stop_probability" toml:"init_term_stop_probability"`
	// MutateTermProbability is the chance a mutated term takes one more bit flip.
	MutateTermProbability       float64 `json:"mutate_term_probability" yaml:"mutate_term_probability" toml:"mutate_term_probability"`
	MutateAddTermProbability    float64 `json:"mutate_add_term_probability" yaml:"mutate_add_term_probability" toml:"mutate_add_term_probability"`
	MutateRemoveTermProbability float64 `json:"mutate_remove_term_probability" yaml:"mutate_remove_term_probability" toml:"mutate_remove_term_probability"`
	// CrossoverTermsProbability is the chance a child polynomial concatenates
	// both parents' term lists instead of inheriting one whole.
	CrossoverTermsProbability float64 `json:"crossover_terms_probability" yaml:"crossover_terms_probability" toml:"crossover_terms_probability"`
}

func DefaultParams() Params {
	return Params{
		MaxTerms:                    50,
		InitMaxTerms:                10,
		InitTermStopProbability:     0.5,
		MutateTermProbability:       0.05,
		MutateAddTermProbability:    0.05,
		MutateRemoveTermProbability: 0.05,
		CrossoverTermsProbability:   0.1,
	}
}

func (p Params) Validate(sizes genome.Sizes) error {
	if err := sizes.Validate(); err != nil {
		return err
	}
	if p.MaxTerms < 1 {
		return genome.Misconfigured("max terms must be >= 1, got %d", p.MaxTerms)
	}
	if p.InitMaxTerms < 1 || p.InitMaxTerms > p.MaxTerms {
		return genome.Misconfigured("init max terms must be in [1, %d], got %d", p.MaxTerms, p.InitMaxTerms)
	}
	for name, v := range map[string]float64{
		"init term stop":  p.InitTermStopProbability,
		"mutate term":     p.MutateTermProbability,
		"mutate add term": p.MutateAddTermProbability,
		"mutate remove":   p.MutateRemoveTermProbability,
		"crossover terms": p.CrossoverTermsProbability,
	} {
		if v < 0 || v > 1 {
			return genome.Misconfigured("%s probability must be in [0, 1], got %v", name, v)
		}
	}
	if p.InitTermStopProbability == 0 {
		return genome.Misconfigured("init term stop probability must be > 0")
	}
	return nil
}

// Check validates g and its term counts against MaxTerms.
func (p Params) Check(g *Genome) error {
	if err := g.Validate(); err != nil {
		return err
	}
	for j, terms := range g.Polynomials {
		if len(terms) > p.MaxTerms {
			return genome.Invalid("polynomial %d holds %d terms, max %d", j, len(terms), p.MaxTerms)
		}
	}
	return nil
}
