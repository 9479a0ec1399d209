package gate

import (
	"errors"
	"math/rand"
	"slices"
)

// Mutate returns an edited copy of g; g itself is left untouched. Each node
// is selected with probability rate for one parametric edit (operator flip,
// rewire or constant perturbation). Under the any-node policy each output
// reference is rewired with the same probability. With probability
// p.StructuralProbability one structural edit is attempted; an edit that
// would break a size bound is skipped.
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
	for idx := range child.Nodes {
		if rng.Float64() < rate {
			mutateNode(rng, child, p, idx)
		}
	}
	if p.OutputPolicy == OutputsAnyNode {
		total := child.NumInputs + len(child.Nodes)
		for i := range child.Outputs {
			if rng.Float64() < rate {
				child.Outputs[i] = rng.Intn(total)
			}
		}
	}
	if rng.Float64() < p.StructuralProbability {
		mutateStructure(rng, child, p)
	}

	if err := p.Check(child); err != nil {
		return nil, err
	}
	return child, nil
}

func mutateNode(rng *rand.Rand, g *Genome, p Params, idx int) {
	w := p.Mutation
	pick := rng.Float64() * (w.Op + w.Wire + w.Const)
	node := &g.Nodes[idx]
	switch {
	case pick < w.Op:
		flipOp(rng, node, p.Ops)
	case pick < w.Op+w.Wire:
		rewire(rng, node, p.MaxFanIn, g.refLimit(g.LayerOf(idx)))
	default:
		perturbConst(rng, node)
	}
}

func flipOp(rng *rand.Rand, node *Node, ops []Op) {
	candidates := make([]Op, 0, len(ops))
	for _, op := range ops {
		if op != node.Op {
			candidates = append(candidates, op)
		}
	}
	if len(candidates) == 0 {
		return
	}
	node.Op = candidates[rng.Intn(len(candidates))]
}

func rewire(rng *rand.Rand, node *Node, maxFanIn, limit int) {
	switch {
	case len(node.Inputs) < maxFanIn && rng.Intn(4) == 0:
		node.Inputs = append(node.Inputs, rng.Intn(limit))
	case len(node.Inputs) > 1 && rng.Intn(4) == 0:
		i := rng.Intn(len(node.Inputs))
		node.Inputs = slices.Delete(node.Inputs, i, i+1)
	default:
		node.Inputs[rng.Intn(len(node.Inputs))] = rng.Intn(limit)
	}
}

func perturbConst(rng *rand.Rand, node *Node) {
	if !node.Op.ConstIsParameter() && rng.Intn(4) == 0 {
		node.UseConst = !node.UseConst
		return
	}
	node.Const ^= 1 << rng.Intn(8)
}

func mutateStructure(rng *rand.Rand, g *Genome, p Params) bool {
	switch rng.Intn(4) {
	case 0:
		return insertNode(rng, g, p)
	case 1:
		return deleteNode(rng, g, p)
	case 2:
		return insertLayer(rng, g, p)
	default:
		return deleteLayer(rng, g, p)
	}
}

func insertNode(rng *rand.Rand, g *Genome, p Params) bool {
	editable := p.editableLayers(g)
	if editable == 0 {
		return false
	}
	l := rng.Intn(editable)
	size := g.LayerSize(l)
	if size >= p.MaxNodesPerLayer {
		return false
	}
	pos := g.LayerStart(l) + rng.Intn(size+1)
	node := randomNode(rng, p, g.refLimit(l))

	target := g.NumInputs + pos
	g.remap(pos, func(ref int) int {
		if ref >= target {
			return ref + 1
		}
		return ref
	})
	g.Nodes = slices.Insert(g.Nodes, pos, node)
	for k := l; k < len(g.LayerEnds); k++ {
		g.LayerEnds[k]++
	}
	return true
}

func deleteNode(rng *rand.Rand, g *Genome, p Params) bool {
	editable := p.editableLayers(g)
	if editable == 0 {
		return false
	}
	l := rng.Intn(editable)
	size := g.LayerSize(l)
	if size <= 1 {
		return false
	}
	pos := g.LayerStart(l) + rng.Intn(size)
	target := g.NumInputs + pos
	fallback := g.refLimit(l)
	g.remap(pos+1, func(ref int) int {
		switch {
		case ref == target:
			return rng.Intn(fallback)
		case ref > target:
			return ref - 1
		}
		return ref
	})
	g.Nodes = slices.Delete(g.Nodes, pos, pos+1)
	for k := l; k < len(g.LayerEnds); k++ {
		g.LayerEnds[k]--
	}
	return true
}

func insertLayer(rng *rand.Rand, g *Genome, p Params) bool {
	if g.NumLayers() >= p.MaxLayers {
		return false
	}
	l := rng.Intn(p.editableLayers(g) + 1)
	start := g.LayerStart(l)
	limit := g.NumInputs + start
	count := 1 + rng.Intn(p.MaxNodesPerLayer)

	nodes := make([]Node, count)
	for i := range nodes {
		nodes[i] = randomNode(rng, p, limit)
	}
	g.remap(start, func(ref int) int {
		if ref >= limit {
			return ref + count
		}
		return ref
	})
	g.Nodes = slices.Insert(g.Nodes, start, nodes...)
	for k := l; k < len(g.LayerEnds); k++ {
		g.LayerEnds[k] += count
	}
	g.LayerEnds = slices.Insert(g.LayerEnds, l, start+count)
	return true
}

func deleteLayer(rng *rand.Rand, g *Genome, p Params) bool {
	editable := p.editableLayers(g)
	if g.NumLayers() <= p.MinLayers || editable == 0 {
		return false
	}
	l := rng.Intn(editable)
	start, end := g.LayerStart(l), g.LayerEnds[l]
	count := end - start
	lo, hi := g.NumInputs+start, g.NumInputs+end
	g.remap(end, func(ref int) int {
		switch {
		case ref >= hi:
			return ref - count
		case ref >= lo:
			return rng.Intn(lo)
		}
		return ref
	})
	g.Nodes = slices.Delete(g.Nodes, start, end)
	g.LayerEnds = slices.Delete(g.LayerEnds, l, l+1)
	for k := l; k < len(g.LayerEnds); k++ {
		g.LayerEnds[k] -= count
	}
	return true
}
