package gate

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Recombine builds one child from two parents of the same run. The child
// takes its layer count from a randomly chosen parent; every child layer is
// copied whole from one parent that has a matching layer, or mixed node by
// node when both parents offer layers of equal width. Copied references are
// re-indexed into the child's own numbering so the child stays feed-forward.
//
// Passing the same genome twice is self-crossover, which is not supported.
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
	layers := parents[rng.Intn(2)].NumLayers()
	child := &Genome{
		NumInputs:  a.NumInputs,
		NumOutputs: a.NumOutputs,
		LayerEnds:  make([]int, 0, layers),
	}

	for l := 0; l < layers; l++ {
		type offer struct {
			src   *Genome
			layer int
		}
		offers := make([]offer, 0, 2)
		for _, parent := range parents {
			if srcLayer, ok := offeredLayer(parent, p, l, layers); ok {
				offers = append(offers, offer{src: parent, layer: srcLayer})
			}
		}

		mixed := len(offers) == 2 && offers[0].src.LayerSize(offers[0].layer) == offers[1].src.LayerSize(offers[1].layer)
		whole := offers[rng.Intn(len(offers))]
		width := whole.src.LayerSize(whole.layer)
		for slot := 0; slot < width; slot++ {
			from := whole
			if mixed {
				from = offers[rng.Intn(2)]
			}
			src := from.src.Nodes[from.src.LayerStart(from.layer)+slot]
			node := Node{
				Op:       src.Op,
				Inputs:   make([]int, len(src.Inputs)),
				Const:    src.Const,
				UseConst: src.UseConst,
			}
			for i, ref := range src.Inputs {
				node.Inputs[i] = child.adoptRef(from.src, ref, l)
			}
			child.Nodes = append(child.Nodes, node)
		}
		child.LayerEnds = append(child.LayerEnds, len(child.Nodes))
	}

	child.Outputs = make([]int, child.NumOutputs)
	if p.OutputPolicy == OutputsFinalLayer {
		resetOutputs(rng, child, p)
	} else {
		for i := range child.Outputs {
			src := parents[rng.Intn(2)]
			child.Outputs[i] = child.adoptRef(src, src.Outputs[i], child.NumLayers())
		}
	}

	if err := p.Check(child); err != nil {
		return nil, err
	}
	return child, nil
}

// offeredLayer maps child layer position l onto a parent layer. Under the
// final-layer policy final layers only pair with final layers.
func offeredLayer(parent *Genome, p Params, l, childLayers int) (int, bool) {
	if p.OutputPolicy == OutputsFinalLayer {
		if l == childLayers-1 {
			return parent.NumLayers() - 1, true
		}
		if l < parent.NumLayers()-1 {
			return l, true
		}
		return 0, false
	}
	if l < parent.NumLayers() {
		return l, true
	}
	return 0, false
}

// adoptRef translates a reference valid in src into one valid for a node of
// child layer l, given that child layers [0, l) are complete. A reference
// into a source layer the child lacks is clamped to the child's deepest
// available layer, and its slot wrapped to that layer's width.
func (child *Genome) adoptRef(src *Genome, ref, l int) int {
	if ref < child.NumInputs {
		return ref
	}
	idx := ref - src.NumInputs
	if l == 0 {
		return idx % child.NumInputs
	}
	j := src.LayerOf(idx)
	slot := idx - src.LayerStart(j)
	if j >= l {
		j = l - 1
	}
	return child.NumInputs + child.LayerStart(j) + slot%child.LayerSize(j)
}
