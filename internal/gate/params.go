package gate

import (
	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// OutputPolicy decides which values become outputs[i].
type OutputPolicy string

const (
	// OutputsFinalLayer fixes the final layer at NumOutputs nodes and reads
	// outputs[i] from its i-th node.
	OutputsFinalLayer OutputPolicy = "final-layer"
	// OutputsAnyNode stores one free reference per output; mutation may
	// rewire it to any node or primary input.
	OutputsAnyNode OutputPolicy = "any-node"
)

// MutationWeights are relative weights of the parametric edits applied to a
// node selected for mutation.
type MutationWeights struct {
	Op    float64 `json:"op" yaml:"op" toml:"op"`
	Wire  float64 `json:"wire" yaml:"wire" toml:"wire"`
	Const float64 `json:"const" yaml:"const" toml:"const"`
}

type Params struct {
	MinLayers        int          `json:"min_layers" yaml:"min_layers" toml:"min_layers"`
	MaxLayers        int          `json:"max_layers" yaml:"max_layers" toml:"max_layers"`
	MaxNodesPerLayer int          `json:"max_nodes_per_layer" yaml:"max_nodes_per_layer" toml:"max_nodes_per_layer"`
	MaxFanIn         int          `json:"max_fan_in" yaml:"max_fan_in" toml:"max_fan_in"`
	Ops              []Op         `json:"ops" yaml:"ops" toml:"ops"`
	OutputPolicy     OutputPolicy `json:"output_policy" yaml:"output_policy" toml:"output_policy"`
	// ConstProbability is the chance a fresh folding node enables its constant.
	ConstProbability float64         `json:"const_probability" yaml:"const_probability" toml:"const_probability"`
	Mutation         MutationWeights `json:"mutation" yaml:"mutation" toml:"mutation"`
	// StructuralProbability is the chance one insert/delete edit is attempted
	// per Mutate call.
	StructuralProbability float64 `json:"structural_probability" yaml:"structural_probability" toml:"structural_probability"`
}

func DefaultParams() Params {
	return Params{
		MinLayers:             1,
		MaxLayers:             5,
		MaxNodesPerLayer:      8,
		MaxFanIn:              3,
		Ops:                   AllOps(),
		OutputPolicy:          OutputsFinalLayer,
		ConstProbability:      0.25,
		Mutation:              MutationWeights{Op: 1, Wire: 1, Const: 1},
		StructuralProbability: 0.1,
	}
}

// Validate checks the parameters against the run sizes.
func (p Params) Validate(sizes genome.Sizes) error {
	if err := sizes.Validate(); err != nil {
		return err
	}
	if p.MinLayers < 1 || p.MaxLayers < p.MinLayers {
		return genome.Misconfigured("layer bounds [%d, %d] invalid", p.MinLayers, p.MaxLayers)
	}
	if p.MaxNodesPerLayer < 1 {
		return genome.Misconfigured("max nodes per layer must be >= 1, got %d", p.MaxNodesPerLayer)
	}
	if p.MaxFanIn < 1 || p.MaxFanIn > MaxFanInLimit {
		return genome.Misconfigured("max fan-in must be in [1, %d], got %d", MaxFanInLimit, p.MaxFanIn)
	}
	if len(p.Ops) == 0 {
		return genome.Misconfigured("operator set is empty")
	}
	for _, op := range p.Ops {
		if !op.Valid() {
			return genome.Misconfigured("unknown operator tag %d", uint8(op))
		}
	}
	switch p.OutputPolicy {
	case OutputsFinalLayer:
		if p.MaxNodesPerLayer < sizes.NumOutputs {
			return genome.Misconfigured("final-layer outputs need max nodes per layer >= %d, got %d", sizes.NumOutputs, p.MaxNodesPerLayer)
		}
	case OutputsAnyNode:
	default:
		return genome.Misconfigured("unknown output policy %q", p.OutputPolicy)
	}
	if p.ConstProbability < 0 || p.ConstProbability > 1 {
		return genome.Misconfigured("const probability must be in [0, 1], got %v", p.ConstProbability)
	}
	if p.StructuralProbability < 0 || p.StructuralProbability > 1 {
		return genome.Misconfigured("structural probability must be in [0, 1], got %v", p.StructuralProbability)
	}
	w := p.Mutation
	if w.Op < 0 || w.Wire < 0 || w.Const < 0 || w.Op+w.Wire+w.Const <= 0 {
		return genome.Misconfigured("mutation weights need one positive entry: %+v", w)
	}
	return nil
}

// Check validates g and then checks it against the configured size bounds.
func (p Params) Check(g *Genome) error {
	if err := g.Validate(); err != nil {
		return err
	}
	layers := g.NumLayers()
	if layers < p.MinLayers || layers > p.MaxLayers {
		return genome.Invalid("layer count %d outside [%d, %d]", layers, p.MinLayers, p.MaxLayers)
	}
	for l := 0; l < layers; l++ {
		if size := g.LayerSize(l); size > p.MaxNodesPerLayer {
			return genome.Invalid("layer %d holds %d nodes, max %d", l, size, p.MaxNodesPerLayer)
		}
	}
	for idx, node := range g.Nodes {
		if len(node.Inputs) > p.MaxFanIn {
			return genome.Invalid("node %d fan-in %d exceeds %d", idx, len(node.Inputs), p.MaxFanIn)
		}
	}
	if p.OutputPolicy == OutputsFinalLayer {
		last := layers - 1
		if g.LayerSize(last) != g.NumOutputs {
			return genome.Invalid("final layer holds %d nodes, want %d outputs", g.LayerSize(last), g.NumOutputs)
		}
		start := g.NumInputs + g.LayerStart(last)
		for i, ref := range g.Outputs {
			if ref != start+i {
				return genome.Invalid("output %d reads %d, final-layer policy wants %d", i, ref, start+i)
			}
		}
	}
	return nil
}

// editableLayers returns n such that structural edits may touch layers [0, n);
// the final layer is pinned under the final-layer policy.
func (p Params) editableLayers(g *Genome) int {
	if p.OutputPolicy == OutputsFinalLayer {
		return g.NumLayers() - 1
	}
	return g.NumLayers()
}
