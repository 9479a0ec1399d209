// Package gate implements the layered gate-circuit genome: a feed-forward
// arena of byte-valued gate nodes grouped by layer.
//
// References are dense integers. A reference r < NumInputs reads primary
// input r; otherwise it reads node r-NumInputs of the arena. Nodes are
// stored layer after layer, so a node in a layer starting at arena index s
// may only reference values below NumInputs+s.
package gate

import (
	"fmt"
	"sort"

	"github.com/jinzhu/copier"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// MaxFanInLimit caps the operand count of a node regardless of parameters.
const MaxFanInLimit = 16

type Node struct {
	Op       Op    `json:"op"`
	Inputs   []int `json:"inputs"`
	Const    uint8 `json:"const"`
	UseConst bool  `json:"use_const,omitempty"`
}

type Genome struct {
	NumInputs  int    `json:"num_inputs"`
	NumOutputs int    `json:"num_outputs"`
	Nodes      []Node `json:"nodes"`
	// LayerEnds[l] is one past the arena index of the last node of layer l.
	LayerEnds []int `json:"layer_ends"`
	Outputs   []int `json:"outputs"`
}

var _ genome.Genome = (*Genome)(nil)

func (g *Genome) Kind() genome.Kind {
	return genome.KindGate
}

func (g *Genome) Sizes() genome.Sizes {
	return genome.Sizes{NumInputs: g.NumInputs, NumOutputs: g.NumOutputs}
}

func (g *Genome) InputBytes() int {
	return g.NumInputs
}

func (g *Genome) OutputBytes() int {
	return g.NumOutputs
}

func (g *Genome) NumLayers() int {
	return len(g.LayerEnds)
}

// LayerStart returns the arena index of the first node of layer l.
func (g *Genome) LayerStart(l int) int {
	if l <= 0 {
		return 0
	}
	return g.LayerEnds[l-1]
}

func (g *Genome) LayerSize(l int) int {
	return g.LayerEnds[l] - g.LayerStart(l)
}

// LayerOf returns the layer holding arena index idx.
func (g *Genome) LayerOf(idx int) int {
	return sort.SearchInts(g.LayerEnds, idx+1)
}

// refLimit is the exclusive upper bound for references made from layer l.
func (g *Genome) refLimit(l int) int {
	return g.NumInputs + g.LayerStart(l)
}

// Clone returns a deep copy.
func (g *Genome) Clone() (*Genome, error) {
	if g == nil {
		return nil, genome.Invalid("clone of nil gate genome")
	}
	var out Genome
	if err := copier.CopyWithOption(&out, g, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone gate genome: %w", err)
	}
	return &out, nil
}

// Validate checks the structural invariants: positive sizes, non-empty
// layers, in-range feed-forward references and in-range outputs.
func (g *Genome) Validate() error {
	if g == nil {
		return genome.Invalid("nil gate genome")
	}
	if err := g.Sizes().Validate(); err != nil {
		return genome.Invalid("sizes: %v", err)
	}
	if len(g.LayerEnds) == 0 {
		return genome.Invalid("circuit has no layers")
	}
	prev := 0
	for l, end := range g.LayerEnds {
		if end <= prev {
			return genome.Invalid("layer %d is empty or out of order", l)
		}
		prev = end
	}
	if prev != len(g.Nodes) {
		return genome.Invalid("layer table covers %d nodes, arena holds %d", prev, len(g.Nodes))
	}
	for l := range g.LayerEnds {
		limit := g.refLimit(l)
		for idx := g.LayerStart(l); idx < g.LayerEnds[l]; idx++ {
			node := g.Nodes[idx]
			if !node.Op.Valid() {
				return genome.Invalid("node %d: unknown operator %d", idx, uint8(node.Op))
			}
			if len(node.Inputs) == 0 || len(node.Inputs) > MaxFanInLimit {
				return genome.Invalid("node %d: fan-in %d out of range", idx, len(node.Inputs))
			}
			for _, ref := range node.Inputs {
				if ref < 0 || ref >= limit {
					return genome.Invalid("node %d in layer %d: reference %d violates feed-forward bound %d", idx, l, ref, limit)
				}
			}
		}
	}
	if len(g.Outputs) != g.NumOutputs {
		return genome.Invalid("circuit selects %d outputs, want %d", len(g.Outputs), g.NumOutputs)
	}
	total := g.NumInputs + len(g.Nodes)
	for i, ref := range g.Outputs {
		if ref < 0 || ref >= total {
			return genome.Invalid("output %d: reference %d out of range", i, ref)
		}
	}
	return nil
}

// remap rewrites every node reference at arena index >= from, and every
// output reference, through fn.
func (g *Genome) remap(from int, fn func(ref int) int) {
	for idx := from; idx < len(g.Nodes); idx++ {
		inputs := g.Nodes[idx].Inputs
		for i, ref := range inputs {
			inputs[i] = fn(ref)
		}
	}
	for i, ref := range g.Outputs {
		g.Outputs[i] = fn(ref)
	}
}
