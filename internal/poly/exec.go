package poly

import (
	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Evaluate computes every polynomial over the input bits and packs the
// results into OutputBytes bytes.
func (g *Genome) Evaluate(input []byte) ([]byte, error) {
	if len(input) != g.InputBytes() {
		return nil, genome.Invalid("input holds %d bytes, polynomials expect %d", len(input), g.InputBytes())
	}
	if len(g.Polynomials) != g.NumOutputs {
		return nil, genome.Invalid("genome holds %d polynomials, want %d", len(g.Polynomials), g.NumOutputs)
	}

	width := TermWords(g.NumInputs)
	words := make([]uint64, width)
	for k, v := range input {
		words[k/8] |= uint64(v) << (8 * (k % 8))
	}

	out := make([]byte, g.OutputBytes())
	for j, terms := range g.Polynomials {
		var value byte
		for _, term := range terms {
			if len(term) != width {
				return nil, genome.Invalid("polynomial %d: mask width %d, want %d", j, len(term), width)
			}
			if satisfied(term, words) {
				value ^= 1
			}
		}
		out[j/8] |= value << (j % 8)
	}
	return out, nil
}

func satisfied(term Term, words []uint64) bool {
	for w, mask := range term {
		if words[w]&mask != mask {
			return false
		}
	}
	return true
}
