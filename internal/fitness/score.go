// Package fitness scores how well a genome tells a target stream apart from
// a reference stream.
package fitness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

// Scorer names a scoring method.
type Scorer string

const (
	// ScorerBinary classifies every output vector and counts correct
	// separations.
	ScorerBinary Scorer = "binary"
	// ScorerCategories compares output byte histograms with a two-sample
	// chi-square test.
	ScorerCategories Scorer = "categories"
)

type Options struct {
	Scorer    Scorer    `json:"scorer" yaml:"scorer" toml:"scorer"`
	Reduction Reduction `json:"reduction" yaml:"reduction" toml:"reduction"`
	Threshold float64   `json:"threshold" yaml:"threshold" toml:"threshold"`
}

func DefaultOptions() Options {
	return Options{
		Scorer:    ScorerBinary,
		Reduction: ReductionMajorityBit,
		Threshold: DefaultThreshold,
	}
}

func (o Options) Validate() error {
	switch o.Scorer {
	case ScorerBinary, "":
		if _, err := o.Reduction.Classifier(o.Threshold); err != nil {
			return err
		}
	case ScorerCategories:
	default:
		return genome.Misconfigured("unknown scorer %q", o.Scorer)
	}
	return nil
}

// Evaluate dispatches on o.Scorer.
func (o Options) Evaluate(g genome.Genome, target, reference stream.Stream, trials int) (float64, error) {
	if o.Scorer == ScorerCategories {
		return ScoreCategories(g, target, reference, trials)
	}
	classify, err := o.Reduction.Classifier(o.Threshold)
	if err != nil {
		return 0, err
	}
	return Score(g, target, reference, trials, classify)
}

// Score runs trials rounds. Each round evaluates g on one target sample and
// one reference sample; a round scores one point per sample classified on
// the right side. Fitness is points / (2*trials), so a genome that ignores
// its input scores exactly 0.5.
func Score(g genome.Genome, target, reference stream.Stream, trials int, classify Classifier) (float64, error) {
	if err := checkInputs(g, target, reference, trials); err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < trials; i++ {
		isTarget, err := classifyNext(g, target, classify)
		if err != nil {
			return 0, fmt.Errorf("trial %d target: %w", i, err)
		}
		if isTarget {
			correct++
		}
		isTarget, err = classifyNext(g, reference, classify)
		if err != nil {
			return 0, fmt.Errorf("trial %d reference: %w", i, err)
		}
		if !isTarget {
			correct++
		}
	}
	return float64(correct) / float64(2*trials), nil
}

func classifyNext(g genome.Genome, src stream.Stream, classify Classifier) (bool, error) {
	sample, err := src.Next()
	if err != nil {
		return false, err
	}
	out, err := g.Evaluate(sample)
	if err != nil {
		return false, err
	}
	return classify(out), nil
}

// ScoreCategories histograms every output byte of g over trials target and
// trials reference samples and returns 1 - p, where p is the p-value of a
// two-sample chi-square test that both histograms share one distribution.
// Outputs confined to a single category carry no evidence and score 0.
func ScoreCategories(g genome.Genome, target, reference stream.Stream, trials int) (float64, error) {
	if err := checkInputs(g, target, reference, trials); err != nil {
		return 0, err
	}
	var hist [2][256]float64
	for i := 0; i < trials; i++ {
		for side, src := range []stream.Stream{target, reference} {
			sample, err := src.Next()
			if err != nil {
				return 0, fmt.Errorf("trial %d: %w", i, err)
			}
			out, err := g.Evaluate(sample)
			if err != nil {
				return 0, fmt.Errorf("trial %d: %w", i, err)
			}
			for _, v := range out {
				hist[side][v]++
			}
		}
	}

	stat, dof := chiSquareTwoSample(hist[0][:], hist[1][:])
	if dof < 1 {
		return 0, nil
	}
	p := distuv.ChiSquared{K: float64(dof)}.Survival(stat)
	return math.Min(1, math.Max(0, 1-p)), nil
}

// chiSquareTwoSample compares two binned samples, ignoring bins empty in
// both.
func chiSquareTwoSample(a, b []float64) (float64, int) {
	var totalA, totalB float64
	for i := range a {
		totalA += a[i]
		totalB += b[i]
	}
	if totalA == 0 || totalB == 0 {
		return 0, 0
	}
	ka, kb := math.Sqrt(totalB/totalA), math.Sqrt(totalA/totalB)
	stat := 0.0
	bins := 0
	for i := range a {
		if a[i]+b[i] == 0 {
			continue
		}
		bins++
		d := ka*a[i] - kb*b[i]
		stat += d * d / (a[i] + b[i])
	}
	return stat, bins - 1
}

func checkInputs(g genome.Genome, target, reference stream.Stream, trials int) error {
	if trials <= 0 {
		return genome.Misconfigured("trials must be > 0, got %d", trials)
	}
	if g == nil {
		return genome.Invalid("nil genome")
	}
	want := g.InputBytes()
	for name, src := range map[string]stream.Stream{"target": target, "reference": reference} {
		if src == nil {
			return genome.Misconfigured("%s stream is required", name)
		}
		if src.OutputSize() != want {
			return genome.Misconfigured("%s stream yields %d bytes, genome reads %d", name, src.OutputSize(), want)
		}
	}
	return nil
}
