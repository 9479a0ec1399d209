package gate

import (
	"errors"
	"math/rand"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Initialize builds a random valid circuit. References are drawn uniformly
// from everything below the node's layer, so the feed-forward invariant holds
// by construction.
func Initialize(rng *rand.Rand, sizes genome.Sizes, p Params) (*Genome, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if err := p.Validate(sizes); err != nil {
		return nil, err
	}

	layers := p.MinLayers + rng.Intn(p.MaxLayers-p.MinLayers+1)
	g := &Genome{
		NumInputs:  sizes.NumInputs,
		NumOutputs: sizes.NumOutputs,
		LayerEnds:  make([]int, 0, layers),
	}
	for l := 0; l < layers; l++ {
		count := 1 + rng.Intn(p.MaxNodesPerLayer)
		if l == layers-1 && p.OutputPolicy == OutputsFinalLayer {
			count = sizes.NumOutputs
		}
		limit := g.NumInputs + len(g.Nodes)
		for i := 0; i < count; i++ {
			g.Nodes = append(g.Nodes, randomNode(rng, p, limit))
		}
		g.LayerEnds = append(g.LayerEnds, len(g.Nodes))
	}

	g.Outputs = make([]int, sizes.NumOutputs)
	resetOutputs(rng, g, p)

	if err := p.Check(g); err != nil {
		return nil, err
	}
	return g, nil
}

func randomNode(rng *rand.Rand, p Params, limit int) Node {
	node := Node{
		Op:     p.Ops[rng.Intn(len(p.Ops))],
		Inputs: make([]int, 1+rng.Intn(p.MaxFanIn)),
		Const:  uint8(rng.Intn(256)),
	}
	for i := range node.Inputs {
		node.Inputs[i] = rng.Intn(limit)
	}
	node.UseConst = rng.Float64() < p.ConstProbability
	return node
}

// resetOutputs pins outputs to the final layer, or draws free references
// under the any-node policy.
func resetOutputs(rng *rand.Rand, g *Genome, p Params) {
	if p.OutputPolicy == OutputsFinalLayer {
		start := g.NumInputs + g.LayerStart(g.NumLayers()-1)
		for i := range g.Outputs {
			g.Outputs[i] = start + i
		}
		return
	}
	total := g.NumInputs + len(g.Nodes)
	for i := range g.Outputs {
		g.Outputs[i] = rng.Intn(total)
	}
}
