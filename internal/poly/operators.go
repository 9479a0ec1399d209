package poly

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Initialize draws 1..InitMaxTerms terms per output. Each term starts with
// one random variable and keeps adding variables until a draw below
// InitTermStopProbability ends it.
func Initialize(rng *rand.Rand, sizes genome.Sizes, p Params) (*Genome, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if err := p.Validate(sizes); err != nil {
		return nil, err
	}
	g := &Genome{
		NumInputs:   sizes.NumInputs,
		NumOutputs:  sizes.NumOutputs,
		Polynomials: make([][]Term, sizes.NumOutputs),
	}
	for j := range g.Polynomials {
		count := 1 + rng.Intn(p.InitMaxTerms)
		terms := make([]Term, count)
		for k := range terms {
			terms[k] = randomTerm(rng, g.NumInputs, p.InitTermStopProbability)
		}
		g.Polynomials[j] = terms
	}
	if err := p.Check(g); err != nil {
		return nil, err
	}
	return g, nil
}

func randomTerm(rng *rand.Rand, numInputs int, stop float64) Term {
	term := make(Term, TermWords(numInputs))
	for i := 0; i < numInputs; i++ {
		v := rng.Intn(numInputs)
		if !term.Has(v) {
			term.Flip(v)
		}
		if rng.Float64() < stop {
			break
		}
	}
	return term
}

// Mutate returns an edited copy of g. Each term is selected with
// probability rate and flips one random variable, then keeps flipping more
// while draws fall below MutateTermProbability. Each polynomial may also
// gain a random term (below MaxTerms) or lose one (above a single term).
func Mutate(rng *rand.Rand, g *Genome, p Params, rate float64) (*Genome, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if err := p.Validate(g.Sizes()); err != nil {
		return nil, err
	}
	if err := p.Check(g); err != nil {
		return nil, err
	}

	child, err := g.Clone()
	if err != nil {
		return nil, err
	}
	for j, terms := range child.Polynomials {
		for _, term := range terms {
			if rng.Float64() >= rate {
				continue
			}
			term.Flip(rng.Intn(child.NumInputs))
			for rng.Float64() < p.MutateTermProbability {
				term.Flip(rng.Intn(child.NumInputs))
			}
		}
		if len(terms) < p.MaxTerms && rng.Float64() < p.MutateAddTermProbability {
			terms = append(terms, randomTerm(rng, child.NumInputs, p.InitTermStopProbability))
		}
		if len(terms) > 1 && rng.Float64() < p.MutateRemoveTermProbability {
			k := rng.Intn(len(terms))
			terms = slices.Delete(terms, k, k+1)
		}
		child.Polynomials[j] = terms
	}

	if err := p.Check(child); err != nil {
		return nil, err
	}
	return child, nil
}

// Recombine builds one child. Each output's term list is inherited whole
// from a random parent, or with probability CrossoverTermsProbability is the
// concatenation of both parents' lists truncated to MaxTerms.
func Recombine(rng *rand.Rand, a, b *Genome, p Params) (*Genome, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if a == nil || b == nil {
		return nil, genome.Invalid("nil parent")
	}
	if a == b {
		return nil, fmt.Errorf("%w: self-crossover", genome.ErrNotApplicable)
	}
	if err := genome.SameSizes(a, b); err != nil {
		return nil, err
	}
	if err := p.Validate(a.Sizes()); err != nil {
		return nil, err
	}
	for _, parent := range []*Genome{a, b} {
		if err := p.Check(parent); err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
	}

	parents := [2]*Genome{a, b}
	child := &Genome{
		NumInputs:   a.NumInputs,
		NumOutputs:  a.NumOutputs,
		Polynomials: make([][]Term, a.NumOutputs),
	}
	for j := range child.Polynomials {
		var terms []Term
		if rng.Float64() < p.CrossoverTermsProbability {
			first := rng.Intn(2)
			terms = append(copyTerms(parents[first].Polynomials[j]), copyTerms(parents[1-first].Polynomials[j])...)
			if len(terms) > p.MaxTerms {
				terms = terms[:p.MaxTerms]
			}
		} else {
			terms = copyTerms(parents[rng.Intn(2)].Polynomials[j])
		}
		child.Polynomials[j] = terms
	}

	if err := p.Check(child); err != nil {
		return nil, err
	}
	return child, nil
}

func copyTerms(terms []Term) []Term {
	out := make([]Term, len(terms))
	for i, term := range terms {
		out[i] = slices.Clone(term)
	}
	return out
}
