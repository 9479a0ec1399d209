package fitness

import (
	"math/bits"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Reduction names the rule that turns an output vector into a binary
// verdict: true means "looks like the target stream".
type Reduction string

const (
	// ReductionMajorityBit says target when more than half the output bits
	// are set.
	ReductionMajorityBit Reduction = "majority-bit"
	// ReductionFirstBit reads the lowest bit of the first output byte.
	ReductionFirstBit Reduction = "first-bit"
	// ReductionParity says target when an odd number of bits are set.
	ReductionParity Reduction = "parity"
	// ReductionThresholdSum says target when the byte sum exceeds
	// Threshold times its maximum.
	ReductionThresholdSum Reduction = "threshold-sum"
)

const DefaultThreshold = 0.5

// Classifier is a compiled reduction.
type Classifier func(out []byte) bool

func ParseReduction(raw string) (Reduction, error) {
	switch r := Reduction(raw); r {
	case "":
		return ReductionMajorityBit, nil
	case ReductionMajorityBit, ReductionFirstBit, ReductionParity, ReductionThresholdSum:
		return r, nil
	}
	return "", genome.Misconfigured("unknown reduction %q", raw)
}

// Classifier compiles r. threshold only matters for threshold-sum and must
// lie in [0, 1].
func (r Reduction) Classifier(threshold float64) (Classifier, error) {
	switch r {
	case ReductionMajorityBit, "":
		return func(out []byte) bool {
			return 2*setBits(out) > 8*len(out)
		}, nil
	case ReductionFirstBit:
		return func(out []byte) bool {
			return len(out) > 0 && out[0]&1 == 1
		}, nil
	case ReductionParity:
		return func(out []byte) bool {
			return setBits(out)%2 == 1
		}, nil
	case ReductionThresholdSum:
		if threshold < 0 || threshold > 1 {
			return nil, genome.Misconfigured("threshold must be in [0, 1], got %v", threshold)
		}
		return func(out []byte) bool {
			sum := 0
			for _, v := range out {
				sum += int(v)
			}
			return float64(sum) > threshold*float64(255*len(out))
		}, nil
	}
	return nil, genome.Misconfigured("unknown reduction %q", r)
}

func setBits(out []byte) int {
	n := 0
	for _, v := range out {
		n += bits.OnesCount8(v)
	}
	return n
}
