package poly

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

func TestEvaluateSingleProductTerm(t *testing.T) {
	g := &Genome{
		NumInputs:   2,
		NumOutputs:  1,
		Polynomials: [][]Term{{Term{0b11}}},
	}
	cases := []struct {
		x0, x1 byte
		want   byte
	}{
		{1, 1, 1},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	}
	for _, tc := range cases {
		out, err := g.Evaluate([]byte{tc.x0 | tc.x1<<1})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if out[0] != tc.want {
			t.Fatalf("x0=%d x1=%d: got %d want %d", tc.x0, tc.x1, out[0], tc.want)
		}
	}
}

func TestEvaluateXorsTermsAndPacksOutputs(t *testing.T) {
	// y0 = x0 + x9, y1 = x70, y2 = 1
	g := &Genome{
		NumInputs:  72,
		NumOutputs: 3,
		Polynomials: [][]Term{
			{Term{1 << 0, 0}, Term{1 << 9, 0}},
			{Term{0, 1 << 6}},
			{Term{0, 0}},
		},
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	input := make([]byte, 9)
	input[0] = 0x01 // x0
	input[1] = 0x02 // x9
	input[8] = 0x40 // x70
	out, err := g.Evaluate(input)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !bytes.Equal(out, []byte{0b110}) {
		t.Fatalf("unexpected packed outputs: %08b", out[0])
	}
}

func TestValidateRejectsOutOfRangeMask(t *testing.T) {
	g := &Genome{
		NumInputs:   3,
		NumOutputs:  1,
		Polynomials: [][]Term{{Term{1 << 3}}},
	}
	if err := g.Validate(); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome, got %v", err)
	}
	g.Polynomials = [][]Term{{}}
	if err := g.Validate(); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for empty polynomial, got %v", err)
	}
}

func TestOperatorsKeepTermBounds(t *testing.T) {
	sizes := genome.Sizes{NumInputs: 70, NumOutputs: 4}
	p := DefaultParams()
	p.MaxTerms = 6
	p.InitMaxTerms = 4
	p.MutateAddTermProbability = 0.5
	p.MutateRemoveTermProbability = 0.3
	p.CrossoverTermsProbability = 0.5
	rng := rand.New(rand.NewSource(8))

	pop := make([]*Genome, 5)
	for i := range pop {
		g, err := Initialize(rng, sizes, p)
		if err != nil {
			t.Fatalf("initialize: %v", err)
		}
		pop[i] = g
	}
	for gen := 0; gen < 100; gen++ {
		i := rng.Intn(len(pop))
		j := (i + 1 + rng.Intn(len(pop)-1)) % len(pop)
		child, err := Recombine(rng, pop[i], pop[j], p)
		if err != nil {
			t.Fatalf("gen %d: recombine: %v", gen, err)
		}
		child, err = Mutate(rng, child, p, 0.3)
		if err != nil {
			t.Fatalf("gen %d: mutate: %v", gen, err)
		}
		if child.Sizes() != sizes {
			t.Fatalf("sizes changed: %+v", child.Sizes())
		}
		for j, terms := range child.Polynomials {
			if len(terms) < 1 || len(terms) > p.MaxTerms {
				t.Fatalf("polynomial %d has %d terms", j, len(terms))
			}
		}
		if _, err := child.Evaluate(make([]byte, child.InputBytes())); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		pop[rng.Intn(len(pop))] = child
	}
}

func TestMutateCopiesParent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	p := DefaultParams()
	g, err := Initialize(rng, genome.Sizes{NumInputs: 16, NumOutputs: 2}, p)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before := g.String()
	if _, err := Mutate(rng, g, p, 1); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if g.String() != before {
		t.Fatalf("parent changed:\n%s\n%s", before, g.String())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := &Genome{
		NumInputs:   2,
		NumOutputs:  1,
		Polynomials: [][]Term{{Term{0b01}, Term{0b10}}},
	}
	c, err := g.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	c.Polynomials[0][0][0] = 0b11
	c.Polynomials[0] = c.Polynomials[0][:1]
	if g.Polynomials[0][0][0] != 0b01 || len(g.Polynomials[0]) != 2 {
		t.Fatalf("clone shares storage with its source: %v", g.Polynomials)
	}

	var missing *Genome
	if _, err := missing.Clone(); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome, got %v", err)
	}
}

func TestRecombineErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	p := DefaultParams()
	a, _ := Initialize(rng, genome.Sizes{NumInputs: 16, NumOutputs: 1}, p)
	b, _ := Initialize(rng, genome.Sizes{NumInputs: 8, NumOutputs: 1}, p)
	if _, err := Recombine(rng, a, a, p); !errors.Is(err, genome.ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
	if _, err := Recombine(rng, a, b, p); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome, got %v", err)
	}
}

func TestString(t *testing.T) {
	g := &Genome{
		NumInputs:   4,
		NumOutputs:  2,
		Polynomials: [][]Term{{Term{0b1001}, Term{0b0010}}, {Term{0}}},
	}
	want := "y0 = x0·x3 + x1\ny1 = 1"
	if got := g.String(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
