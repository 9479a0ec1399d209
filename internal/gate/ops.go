package gate

import (
	"fmt"
	"math/bits"
	"strings"
)

// Op is a gate operator tag. Values are bytes; every operator maps a small
// operand list plus the node's constant to one byte.
type Op uint8

const (
	OpNOP Op = iota
	OpCONS
	OpAND
	OpNAND
	OpOR
	OpNOR
	OpXOR
	OpNOT
	OpSHL
	OpSHR
	OpROL
	OpROR
	OpADD
	OpSUM
	OpMUL
	OpDIV
	OpEQ
	OpLT
	OpGT
	OpBSLC
	opCount
)

var opNames = [opCount]string{
	OpNOP:  "NOP",
	OpCONS: "CONS",
	OpAND:  "AND",
	OpNAND: "NAND",
	OpOR:   "OR",
	OpNOR:  "NOR",
	OpXOR:  "XOR",
	OpNOT:  "NOT",
	OpSHL:  "SHL",
	OpSHR:  "SHR",
	OpROL:  "ROL",
	OpROR:  "ROR",
	OpADD:  "ADD",
	OpSUM:  "SUM",
	OpMUL:  "MUL",
	OpDIV:  "DIV",
	OpEQ:   "EQ",
	OpLT:   "LT",
	OpGT:   "GT",
	OpBSLC: "BSLC",
}

// AllOps returns the full operator vocabulary in tag order.
func AllOps() []Op {
	ops := make([]Op, 0, opCount)
	for op := OpNOP; op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

func (op Op) Valid() bool {
	return op < opCount
}

func (op Op) String() string {
	if !op.Valid() {
		return fmt.Sprintf("OP(%d)", uint8(op))
	}
	return opNames[op]
}

func ParseOp(raw string) (Op, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	for op := OpNOP; op < opCount; op++ {
		if opNames[op] == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown gate operator: %q", raw)
}

func (op Op) MarshalText() ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unknown gate operator tag: %d", uint8(op))
	}
	return []byte(op.String()), nil
}

func (op *Op) UnmarshalText(text []byte) error {
	parsed, err := ParseOp(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}

// ConstIsParameter reports operators whose constant is an argument (shift
// amount, mask, literal) rather than an optional extra operand.
func (op Op) ConstIsParameter() bool {
	switch op {
	case OpCONS, OpSHL, OpSHR, OpROL, OpROR, OpBSLC:
		return true
	}
	return false
}

// inputsRead is how many leading input references an operator actually
// reads; -1 means all of them.
func (op Op) inputsRead() int {
	switch op {
	case OpCONS:
		return 0
	case OpNOP, OpNOT, OpSHL, OpSHR, OpROL, OpROR, OpBSLC:
		return 1
	case OpLT, OpGT:
		return 2
	}
	return -1
}

// apply evaluates op over args. For folding operators args already carries
// the embedded constant when the node enables it; args is never empty.
func (op Op) apply(args []byte, c byte) byte {
	switch op {
	case OpNOP:
		return args[0]
	case OpCONS:
		return c
	case OpAND, OpNAND:
		acc := args[0]
		for _, v := range args[1:] {
			acc &= v
		}
		if op == OpNAND {
			return ^acc
		}
		return acc
	case OpOR, OpNOR:
		acc := args[0]
		for _, v := range args[1:] {
			acc |= v
		}
		if op == OpNOR {
			return ^acc
		}
		return acc
	case OpXOR:
		acc := args[0]
		for _, v := range args[1:] {
			acc ^= v
		}
		return acc
	case OpNOT:
		return ^args[0]
	case OpSHL:
		return args[0] << (c % 8)
	case OpSHR:
		return args[0] >> (c % 8)
	case OpROL:
		return bits.RotateLeft8(args[0], int(c%8))
	case OpROR:
		return bits.RotateLeft8(args[0], -int(c%8))
	case OpADD:
		acc := args[0]
		for _, v := range args[1:] {
			acc += v
		}
		return acc
	case OpSUM:
		acc := int(args[0])
		for _, v := range args[1:] {
			acc += int(v)
			if acc >= 0xFF {
				return 0xFF
			}
		}
		return byte(acc)
	case OpMUL:
		acc := args[0]
		for _, v := range args[1:] {
			acc *= v
		}
		return acc
	case OpDIV:
		acc := args[0]
		for _, v := range args[1:] {
			if v == 0 {
				v = 1
			}
			acc /= v
		}
		return acc
	case OpEQ:
		for _, v := range args[1:] {
			if v != args[0] {
				return 0
			}
		}
		return 0xFF
	case OpLT, OpGT:
		other := c
		if len(args) > 1 {
			other = args[1]
		}
		if (op == OpLT && args[0] < other) || (op == OpGT && args[0] > other) {
			return 0xFF
		}
		return 0
	case OpBSLC:
		return args[0] & c
	}
	return 0
}
