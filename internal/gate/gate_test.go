package gate

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

var testSizes = genome.Sizes{NumInputs: 16, NumOutputs: 2}

func randomInput(rng *rand.Rand, n int) []byte {
	buf := make([]byte, n)
	rng.Read(buf)
	return buf
}

// xorCircuit reads outputs straight from one layer: out0 = in0 ^ in1,
// out1 = NOT in2.
func xorCircuit() *Genome {
	return &Genome{
		NumInputs:  3,
		NumOutputs: 2,
		Nodes: []Node{
			{Op: OpXOR, Inputs: []int{0, 1}},
			{Op: OpNOT, Inputs: []int{2}},
		},
		LayerEnds: []int{2},
		Outputs:   []int{3, 4},
	}
}

func TestEvaluateHandBuiltCircuit(t *testing.T) {
	g := xorCircuit()
	out, err := g.Evaluate([]byte{0x0F, 0xFF, 0x00})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !bytes.Equal(out, []byte{0xF0, 0xFF}) {
		t.Fatalf("unexpected outputs: %x", out)
	}
	if _, err := g.Evaluate([]byte{0x01}); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome on short input, got %v", err)
	}
}

func TestEvaluateEmbeddedConstant(t *testing.T) {
	g := &Genome{
		NumInputs:  1,
		NumOutputs: 1,
		Nodes:      []Node{{Op: OpXOR, Inputs: []int{0}, Const: 0xAA, UseConst: true}},
		LayerEnds:  []int{1},
		Outputs:    []int{1},
	}
	out, err := g.Evaluate([]byte{0xFF})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if out[0] != 0x55 {
		t.Fatalf("expected constant folded into XOR, got %#02x", out[0])
	}
}

func TestEvaluateRejectsBadReferences(t *testing.T) {
	g := xorCircuit()
	g.Nodes[0].Inputs = []int{0, 3}
	if _, err := g.Evaluate([]byte{1, 2, 3}); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for same-layer reference, got %v", err)
	}
	if err := g.Validate(); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected validate to reject same-layer reference, got %v", err)
	}

	g = xorCircuit()
	g.Outputs[1] = 99
	if _, err := g.Evaluate([]byte{1, 2, 3}); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for output out of range, got %v", err)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g, err := Initialize(rng, testSizes, DefaultParams())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	input := randomInput(rng, testSizes.NumInputs)
	first, err := g.Evaluate(input)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := g.Evaluate(input)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("evaluation %d differs: %x vs %x", i, first, again)
		}
	}
}

func TestInitializeIsSeedDeterministic(t *testing.T) {
	a, err := Initialize(rand.New(rand.NewSource(42)), testSizes, DefaultParams())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	b, err := Initialize(rand.New(rand.NewSource(42)), testSizes, DefaultParams())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	input := bytes.Repeat([]byte{0x3C}, testSizes.NumInputs)
	outA, _ := a.Evaluate(input)
	outB, _ := b.Evaluate(input)
	if len(a.Nodes) != len(b.Nodes) || !bytes.Equal(outA, outB) {
		t.Fatal("same seed produced different circuits")
	}
}

func TestInitializeRejectsBadConfiguration(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := Initialize(rng, genome.Sizes{NumInputs: 16, NumOutputs: 0}, DefaultParams()); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for zero outputs, got %v", err)
	}
	p := DefaultParams()
	p.MaxNodesPerLayer = 1
	if _, err := Initialize(rng, testSizes, p); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration when final layer cannot hold outputs, got %v", err)
	}
	p = DefaultParams()
	p.Ops = nil
	if _, err := Initialize(rng, testSizes, p); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for empty operator set, got %v", err)
	}
}

func TestOperatorsPreserveValidity(t *testing.T) {
	for _, policy := range []OutputPolicy{OutputsFinalLayer, OutputsAnyNode} {
		p := DefaultParams()
		p.OutputPolicy = policy
		p.StructuralProbability = 0.8
		rng := rand.New(rand.NewSource(99))

		pop := make([]*Genome, 6)
		for i := range pop {
			g, err := Initialize(rng, testSizes, p)
			if err != nil {
				t.Fatalf("%s: initialize: %v", policy, err)
			}
			pop[i] = g
		}
		for gen := 0; gen < 60; gen++ {
			i, j := rng.Intn(len(pop)), rng.Intn(len(pop))
			if i == j {
				j = (j + 1) % len(pop)
			}
			child, err := Recombine(rng, pop[i], pop[j], p)
			if err != nil {
				t.Fatalf("%s gen %d: recombine: %v", policy, gen, err)
			}
			child, err = Mutate(rng, child, p, 0.2)
			if err != nil {
				t.Fatalf("%s gen %d: mutate: %v", policy, gen, err)
			}
			if child.Sizes() != testSizes {
				t.Fatalf("%s gen %d: sizes changed to %+v", policy, gen, child.Sizes())
			}
			if _, err := child.Evaluate(randomInput(rng, testSizes.NumInputs)); err != nil {
				t.Fatalf("%s gen %d: evaluate child: %v", policy, gen, err)
			}
			pop[rng.Intn(len(pop))] = child
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g, err := Initialize(rand.New(rand.NewSource(8)), testSizes, DefaultParams())
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	c, err := g.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	origRef := g.Nodes[0].Inputs[0]
	c.Nodes[0].Inputs[0] = origRef + 1
	c.Outputs[0] = -1
	c.LayerEnds[0]++
	if g.Nodes[0].Inputs[0] != origRef || g.Outputs[0] == -1 || g.LayerEnds[0] == c.LayerEnds[0] {
		t.Fatalf("clone shares storage with its source")
	}

	var missing *Genome
	if _, err := missing.Clone(); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome, got %v", err)
	}
}

func TestMutateLeavesParentUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := DefaultParams()
	p.StructuralProbability = 1
	parent, err := Initialize(rng, testSizes, p)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before, err := parent.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if _, err := Mutate(rng, parent, p, 1); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if len(before.Nodes) != len(parent.Nodes) {
		t.Fatalf("parent arena changed: %d -> %d", len(before.Nodes), len(parent.Nodes))
	}
	for i := range before.Nodes {
		a, b := before.Nodes[i], parent.Nodes[i]
		if a.Op != b.Op || a.Const != b.Const || a.UseConst != b.UseConst || len(a.Inputs) != len(b.Inputs) {
			t.Fatalf("parent node %d changed: %+v -> %+v", i, a, b)
		}
		for k := range a.Inputs {
			if a.Inputs[k] != b.Inputs[k] {
				t.Fatalf("parent node %d input %d changed", i, k)
			}
		}
	}
}

func TestMutateRespectsLayerBounds(t *testing.T) {
	p := DefaultParams()
	p.MinLayers, p.MaxLayers = 2, 3
	p.StructuralProbability = 1
	rng := rand.New(rand.NewSource(17))
	g, err := Initialize(rng, testSizes, p)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < 200; i++ {
		g, err = Mutate(rng, g, p, 0.1)
		if err != nil {
			t.Fatalf("mutate %d: %v", i, err)
		}
		if g.NumLayers() < 2 || g.NumLayers() > 3 {
			t.Fatalf("layer count %d escaped bounds", g.NumLayers())
		}
	}
}

func TestRecombineErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := DefaultParams()
	a, err := Initialize(rng, testSizes, p)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := Recombine(rng, a, a, p); !errors.Is(err, genome.ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for self-crossover, got %v", err)
	}
	other, err := Initialize(rng, genome.Sizes{NumInputs: 8, NumOutputs: 2}, p)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := Recombine(rng, a, other, p); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for differing sizes, got %v", err)
	}
}

func TestPruneKeepsBehaviour(t *testing.T) {
	for _, policy := range []OutputPolicy{OutputsFinalLayer, OutputsAnyNode} {
		p := DefaultParams()
		p.OutputPolicy = policy
		p.MaxLayers = 6
		rng := rand.New(rand.NewSource(23))
		for n := 0; n < 20; n++ {
			g, err := Initialize(rng, testSizes, p)
			if err != nil {
				t.Fatalf("initialize: %v", err)
			}
			pruned, err := Prune(g)
			if err != nil {
				t.Fatalf("prune: %v", err)
			}
			if len(pruned.Nodes) > len(g.Nodes) {
				t.Fatalf("prune grew the circuit: %d -> %d", len(g.Nodes), len(pruned.Nodes))
			}
			for k := 0; k < 32; k++ {
				input := randomInput(rng, testSizes.NumInputs)
				want, err := g.Evaluate(input)
				if err != nil {
					t.Fatalf("evaluate original: %v", err)
				}
				got, err := pruned.Evaluate(input)
				if err != nil {
					t.Fatalf("evaluate pruned: %v", err)
				}
				if !bytes.Equal(want, got) {
					t.Fatalf("%s circuit %d: pruned output %x, original %x", policy, n, got, want)
				}
			}
		}
	}
}

func TestPruneDropsDeadNodes(t *testing.T) {
	g := &Genome{
		NumInputs:  2,
		NumOutputs: 1,
		Nodes: []Node{
			{Op: OpAND, Inputs: []int{0, 1}},
			{Op: OpOR, Inputs: []int{0, 1}},
			{Op: OpNOT, Inputs: []int{2, 3}},
		},
		LayerEnds: []int{2, 3},
		Outputs:   []int{4},
	}
	pruned, err := Prune(g)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(pruned.Nodes) != 2 {
		t.Fatalf("expected OR node and ignored operand dropped, got %d nodes", len(pruned.Nodes))
	}
	if got := pruned.Nodes[1].Inputs; len(got) != 1 || got[0] != 2 {
		t.Fatalf("NOT should read the single surviving node, got %v", got)
	}
}

func TestArtifactNaming(t *testing.T) {
	g := &Genome{
		NumInputs:  3,
		NumOutputs: 1,
		Nodes: []Node{
			{Op: OpXOR, Inputs: []int{0, 2}},
			{Op: OpDIV, Inputs: []int{3, 0}},
		},
		LayerEnds: []int{1, 2},
		Outputs:   []int{4},
	}
	art, err := Artifact(g)
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if strings.Join(art.Inputs, ",") != "VAR_IN_0,VAR_IN_2" {
		t.Fatalf("unexpected live inputs: %v", art.Inputs)
	}
	if art.Ops[0].Name != "VAR_1_0_XOR" || art.Ops[1].Name != "VAR_2_0_DIV" {
		t.Fatalf("unexpected op names: %s %s", art.Ops[0].Name, art.Ops[1].Name)
	}
	if art.Outputs[0] != "VAR_2_0_DIV" {
		t.Fatalf("unexpected output binding: %v", art.Outputs)
	}

	src, err := RenderC(art)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"int headerCircuit_inputLayerSize = 3;",
		"static void circuit(unsigned char inputs[3], unsigned char outputs[1])",
		"unsigned char VAR_1_0_XOR = VAR_IN_0 ^ VAR_IN_2;",
		"(VAR_IN_0 ? VAR_IN_0 : 1)",
		"outputs[0] = VAR_2_0_DIV;",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("rendered source missing %q:\n%s", want, src)
		}
	}
}
