// Package poly implements the polynomial genome: one multivariate GF(2)
// polynomial per output bit over the input bits.
//
// Variable i is bit i%8 of input byte i/8, least significant bit first.
// Output j is packed the same way. A term is a bitmask over the variables,
// stored in 64-bit words, and evaluates to the AND of the selected bits.
package poly

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

const wordBits = 64

// Term selects the variables multiplied together. Its length is
// TermWords(NumInputs).
type Term []uint64

type Genome struct {
	NumInputs  int `json:"num_inputs"`
	NumOutputs int `json:"num_outputs"`
	// Polynomials[j] holds the terms of output j.
	Polynomials [][]Term `json:"polynomials"`
}

var _ genome.Genome = (*Genome)(nil)

// TermWords is the mask width for n variables.
func TermWords(n int) int {
	return (n + wordBits - 1) / wordBits
}

func (g *Genome) Kind() genome.Kind {
	return genome.KindPolynomial
}

func (g *Genome) Sizes() genome.Sizes {
	return genome.Sizes{NumInputs: g.NumInputs, NumOutputs: g.NumOutputs}
}

func (g *Genome) InputBytes() int {
	return (g.NumInputs + 7) / 8
}

func (g *Genome) OutputBytes() int {
	return (g.NumOutputs + 7) / 8
}

func (g *Genome) Clone() (*Genome, error) {
	if g == nil {
		return nil, genome.Invalid("clone of nil polynomial genome")
	}
	var out Genome
	if err := copier.CopyWithOption(&out, g, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone polynomial genome: %w", err)
	}
	return &out, nil
}

// Validate checks polynomial count, non-empty term lists, mask widths and
// that no mask selects a variable beyond NumInputs.
func (g *Genome) Validate() error {
	if g == nil {
		return genome.Invalid("nil polynomial genome")
	}
	if err := g.Sizes().Validate(); err != nil {
		return genome.Invalid("sizes: %v", err)
	}
	if len(g.Polynomials) != g.NumOutputs {
		return genome.Invalid("genome holds %d polynomials, want %d", len(g.Polynomials), g.NumOutputs)
	}
	width := TermWords(g.NumInputs)
	for j, terms := range g.Polynomials {
		if len(terms) == 0 {
			return genome.Invalid("polynomial %d has no terms", j)
		}
		for k, term := range terms {
			if len(term) != width {
				return genome.Invalid("polynomial %d term %d: mask width %d, want %d", j, k, len(term), width)
			}
			if term[width-1]&^lastWordMask(g.NumInputs) != 0 {
				return genome.Invalid("polynomial %d term %d selects a variable beyond %d", j, k, g.NumInputs)
			}
		}
	}
	return nil
}

// lastWordMask covers the variables that exist in the final mask word.
func lastWordMask(n int) uint64 {
	rem := n % wordBits
	if rem == 0 {
		return ^uint64(0)
	}
	return uint64(1)<<rem - 1
}

func (t Term) Has(v int) bool {
	return t[v/wordBits]&(1<<(v%wordBits)) != 0
}

func (t Term) Flip(v int) {
	t[v/wordBits] ^= 1 << (v % wordBits)
}

// Variables lists the selected variable indices in ascending order.
func (t Term) Variables() []int {
	var vars []int
	for w, word := range t {
		for b := 0; b < wordBits; b++ {
			if word&(1<<b) != 0 {
				vars = append(vars, w*wordBits+b)
			}
		}
	}
	return vars
}

// String renders the polynomials as y0 = x0·x3 + x1, one per line. A term
// that selects no variable is the constant 1.
func (g *Genome) String() string {
	var b strings.Builder
	for j, terms := range g.Polynomials {
		if j > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("y" + strconv.Itoa(j) + " = ")
		for k, term := range terms {
			if k > 0 {
				b.WriteString(" + ")
			}
			vars := term.Variables()
			if len(vars) == 0 {
				b.WriteString("1")
				continue
			}
			for i, v := range vars {
				if i > 0 {
					b.WriteString("·")
				}
				b.WriteString("x" + strconv.Itoa(v))
			}
		}
	}
	return b.String()
}
