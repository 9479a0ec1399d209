package gate

import (
	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Evaluate runs the circuit on one input vector of NumInputs bytes and
// returns NumOutputs bytes. Layers run in order; nodes within a layer only
// read earlier values. Every reference is bounds-checked on the way, so a
// corrupted genome yields ErrInvalidGenome instead of a panic.
func (g *Genome) Evaluate(input []byte) ([]byte, error) {
	if len(input) != g.NumInputs {
		return nil, genome.Invalid("input holds %d bytes, circuit expects %d", len(input), g.NumInputs)
	}
	prev := 0
	for l, end := range g.LayerEnds {
		if end <= prev || end > len(g.Nodes) {
			return nil, genome.Invalid("layer %d ends at %d, outside the arena of %d nodes", l, end, len(g.Nodes))
		}
		prev = end
	}
	values := make([]byte, g.NumInputs+len(g.Nodes))
	copy(values, input)

	var stack [MaxFanInLimit + 1]byte
	for l := range g.LayerEnds {
		limit := g.refLimit(l)
		for idx := g.LayerStart(l); idx < g.LayerEnds[l]; idx++ {
			node := &g.Nodes[idx]
			if len(node.Inputs) == 0 || len(node.Inputs) > MaxFanInLimit {
				return nil, genome.Invalid("node %d: fan-in %d out of range", idx, len(node.Inputs))
			}
			args := stack[:0]
			for _, ref := range node.Inputs {
				if ref < 0 || ref >= limit {
					return nil, genome.Invalid("node %d in layer %d: reference %d violates feed-forward bound %d", idx, l, ref, limit)
				}
				args = append(args, values[ref])
			}
			if node.UseConst && !node.Op.ConstIsParameter() {
				args = append(args, node.Const)
			}
			if !node.Op.Valid() {
				return nil, genome.Invalid("node %d: unknown operator %d", idx, uint8(node.Op))
			}
			values[g.NumInputs+idx] = node.Op.apply(args, node.Const)
		}
	}

	if len(g.Outputs) != g.NumOutputs {
		return nil, genome.Invalid("circuit selects %d outputs, want %d", len(g.Outputs), g.NumOutputs)
	}
	out := make([]byte, g.NumOutputs)
	for i, ref := range g.Outputs {
		if ref < 0 || ref >= len(values) {
			return nil, genome.Invalid("output %d: reference %d out of range", i, ref)
		}
		out[i] = values[ref]
	}
	return out, nil
}
