package gate

import (
	"fmt"
	"strings"

	"github.com/praveenmunagapati/eacirc/internal/model"
)

func inputName(i int) string {
	return fmt.Sprintf("VAR_IN_%d", i)
}

func nodeName(layer, slot int, op Op) string {
	return fmt.Sprintf("VAR_%d_%d_%s", layer+1, slot, op)
}

// Artifact flattens g into named operations in evaluation order. Run it on
// a pruned circuit to get the minimized form.
func Artifact(g *Genome) (model.CircuitArtifact, error) {
	if err := g.Validate(); err != nil {
		return model.CircuitArtifact{}, err
	}

	names := make([]string, g.NumInputs+len(g.Nodes))
	for i := 0; i < g.NumInputs; i++ {
		names[i] = inputName(i)
	}
	usedInput := make([]bool, g.NumInputs)
	markInput := func(ref int) {
		if ref < g.NumInputs {
			usedInput[ref] = true
		}
	}

	art := model.CircuitArtifact{
		InputLayerSize:  g.NumInputs,
		OutputLayerSize: g.NumOutputs,
		Ops:             make([]model.ArtifactOp, 0, len(g.Nodes)),
	}
	for l := range g.LayerEnds {
		start := g.LayerStart(l)
		for idx := start; idx < g.LayerEnds[l]; idx++ {
			node := g.Nodes[idx]
			name := nodeName(l, idx-start, node.Op)
			names[g.NumInputs+idx] = name

			read := readRefs(node)
			args := make([]string, len(read))
			for i, ref := range read {
				args[i] = names[ref]
				markInput(ref)
			}
			art.Ops = append(art.Ops, model.ArtifactOp{
				Name:     name,
				Op:       node.Op.String(),
				Layer:    l + 1,
				Slot:     idx - start,
				Args:     args,
				Const:    node.Const,
				UseConst: node.UseConst && !node.Op.ConstIsParameter(),
			})
		}
	}
	for _, ref := range g.Outputs {
		art.Outputs = append(art.Outputs, names[ref])
		markInput(ref)
	}
	for i, used := range usedInput {
		if used {
			art.Inputs = append(art.Inputs, inputName(i))
		}
	}
	return art, nil
}

// RenderC renders an artifact as a standalone C function, the format the
// minimized circuits are inspected in outside the search loop.
func RenderC(art model.CircuitArtifact) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "int headerCircuit_inputLayerSize = %d;\n", art.InputLayerSize)
	fmt.Fprintf(&b, "int headerCircuit_outputLayerSize = %d;\n\n", art.OutputLayerSize)
	fmt.Fprintf(&b, "static void circuit(unsigned char inputs[%d], unsigned char outputs[%d]) {\n", art.InputLayerSize, art.OutputLayerSize)
	for _, name := range art.Inputs {
		var idx int
		if _, err := fmt.Sscanf(name, "VAR_IN_%d", &idx); err != nil {
			return "", fmt.Errorf("artifact input %q: %w", name, err)
		}
		fmt.Fprintf(&b, "    unsigned char %s = inputs[%d];\n", name, idx)
	}
	if len(art.Inputs) > 0 {
		b.WriteString("\n")
	}
	for _, op := range art.Ops {
		parsed, err := ParseOp(op.Op)
		if err != nil {
			return "", fmt.Errorf("artifact op %s: %w", op.Name, err)
		}
		fmt.Fprintf(&b, "    unsigned char %s = %s;\n", op.Name, cExpr(parsed, op))
	}
	b.WriteString("\n")
	for i, name := range art.Outputs {
		fmt.Fprintf(&b, "    outputs[%d] = %s;\n", i, name)
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func cExpr(op Op, a model.ArtifactOp) string {
	c := fmt.Sprintf("0x%02X", a.Const)
	operands := append([]string(nil), a.Args...)
	if a.UseConst {
		operands = append(operands, c)
	}
	first := "0"
	if len(a.Args) > 0 {
		first = a.Args[0]
	}
	join := func(sep string) string {
		return strings.Join(operands, sep)
	}

	switch op {
	case OpNOP:
		return first
	case OpCONS:
		return c
	case OpAND:
		return join(" & ")
	case OpNAND:
		return "~(" + join(" & ") + ")"
	case OpOR:
		return join(" | ")
	case OpNOR:
		return "~(" + join(" | ") + ")"
	case OpXOR:
		return join(" ^ ")
	case OpNOT:
		return "~" + first
	case OpSHL:
		return fmt.Sprintf("%s << %d", first, a.Const%8)
	case OpSHR:
		return fmt.Sprintf("%s >> %d", first, a.Const%8)
	case OpROL, OpROR:
		shift := int(a.Const % 8)
		if shift == 0 {
			return first
		}
		if op == OpROR {
			shift = 8 - shift
		}
		return fmt.Sprintf("(unsigned char)((%s << %d) | (%s >> %d))", first, shift, first, 8-shift)
	case OpADD:
		return join(" + ")
	case OpSUM:
		sum := "(int)" + join(" + (int)")
		return fmt.Sprintf("(%s) > 255 ? 255 : (%s)", sum, sum)
	case OpMUL:
		return join(" * ")
	case OpDIV:
		expr := operands[0]
		for _, d := range operands[1:] {
			expr = fmt.Sprintf("(%s / (%s ? %s : 1))", expr, d, d)
		}
		return expr
	case OpEQ:
		if len(operands) < 2 {
			return "0xFF"
		}
		terms := make([]string, 0, len(operands)-1)
		for _, o := range operands[1:] {
			terms = append(terms, operands[0]+" == "+o)
		}
		return "(" + strings.Join(terms, " && ") + ") ? 0xFF : 0"
	case OpLT, OpGT:
		other := c
		if len(operands) > 1 {
			other = operands[1]
		}
		cmp := " < "
		if op == OpGT {
			cmp = " > "
		}
		return "(" + first + cmp + other + ") ? 0xFF : 0"
	case OpBSLC:
		return first + " & " + c
	}
	return "0"
}
