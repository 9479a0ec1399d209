package gate

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Prune returns an equivalent circuit without dead nodes. A value is live
// when it is reachable backwards from an output through operands the
// operator actually reads; operand references an operator ignores are
// dropped, and layers left empty disappear. The result evaluates identically
// to g on every input.
func Prune(g *Genome) (*Genome, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	deps := dependencyGraph(g)
	if _, err := topo.Sort(deps); err != nil {
		return nil, genome.Invalid("dependency graph is not acyclic: %v", err)
	}
	live := make([]bool, g.NumInputs+len(g.Nodes))
	walker := traverse.DepthFirst{
		Visit: func(n graph.Node) { live[n.ID()] = true },
	}
	for _, ref := range g.Outputs {
		if !walker.Visited(simple.Node(ref)) {
			walker.Walk(deps, simple.Node(ref), nil)
		}
	}

	pruned := &Genome{
		NumInputs:  g.NumInputs,
		NumOutputs: g.NumOutputs,
	}
	newIndex := make([]int, len(g.Nodes))
	for l := range g.LayerEnds {
		kept := false
		for idx := g.LayerStart(l); idx < g.LayerEnds[l]; idx++ {
			if !live[g.NumInputs+idx] {
				newIndex[idx] = -1
				continue
			}
			src := g.Nodes[idx]
			node := Node{Op: src.Op, Const: src.Const, UseConst: src.UseConst}
			read := readRefs(src)
			if len(read) == 0 {
				node.Inputs = []int{0}
			} else {
				node.Inputs = make([]int, len(read))
				for i, ref := range read {
					node.Inputs[i] = pruned.translate(ref, newIndex)
				}
			}
			newIndex[idx] = len(pruned.Nodes)
			pruned.Nodes = append(pruned.Nodes, node)
			kept = true
		}
		if kept {
			pruned.LayerEnds = append(pruned.LayerEnds, len(pruned.Nodes))
		}
	}
	if len(pruned.Nodes) == 0 {
		// Every output reads a primary input; keep one inert node so the
		// circuit still has a layer.
		pruned.Nodes = append(pruned.Nodes, Node{Op: OpNOP, Inputs: []int{0}})
		pruned.LayerEnds = append(pruned.LayerEnds, 1)
	}

	pruned.Outputs = make([]int, len(g.Outputs))
	for i, ref := range g.Outputs {
		pruned.Outputs[i] = pruned.translate(ref, newIndex)
	}
	if err := pruned.Validate(); err != nil {
		return nil, err
	}
	return pruned, nil
}

func (g *Genome) translate(ref int, newIndex []int) int {
	if ref < g.NumInputs {
		return ref
	}
	return g.NumInputs + newIndex[ref-g.NumInputs]
}

// readRefs returns the operand references the node's operator consumes.
func readRefs(node Node) []int {
	n := node.Op.inputsRead()
	if n < 0 || n > len(node.Inputs) {
		return node.Inputs
	}
	return node.Inputs[:n]
}

// dependencyGraph links every node value to the values it reads.
func dependencyGraph(g *Genome) *simple.DirectedGraph {
	deps := simple.NewDirectedGraph()
	total := g.NumInputs + len(g.Nodes)
	for id := 0; id < total; id++ {
		deps.AddNode(simple.Node(id))
	}
	for idx, node := range g.Nodes {
		from := simple.Node(g.NumInputs + idx)
		for _, ref := range readRefs(node) {
			if !deps.HasEdgeFromTo(from.ID(), int64(ref)) {
				deps.SetEdge(deps.NewEdge(from, simple.Node(ref)))
			}
		}
	}
	return deps
}
