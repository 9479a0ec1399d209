package fitness

import (
	"context"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

// Batch scores many genomes against one pair of prebuilt datasets. The
// datasets are shared read-only; every task replays them through its own
// readers, so no stream state crosses goroutines.
type Batch struct {
	Target    *stream.Dataset
	Reference *stream.Dataset
	Trials    int
	Options   Options
	// Workers caps concurrent evaluations; <= 0 means GOMAXPROCS.
	Workers int
	Logger  logrus.FieldLogger
}

// Result is one genome's outcome. Err is set when that genome could not be
// scored; the rest of the batch is unaffected.
type Result struct {
	Index   int
	Fitness float64
	Err     error
}

// Evaluate scores genomes concurrently and returns results in input order.
// Only context cancellation fails the whole batch.
func (b Batch) Evaluate(ctx context.Context, genomes []genome.Genome) ([]Result, error) {
	if b.Target == nil || b.Reference == nil {
		return nil, genome.Misconfigured("batch needs target and reference datasets")
	}
	if b.Trials <= 0 {
		return nil, genome.Misconfigured("trials must be > 0, got %d", b.Trials)
	}
	if err := b.Options.Validate(); err != nil {
		return nil, err
	}
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := b.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	p := pool.NewWithResults[Result]().WithContext(ctx).WithMaxGoroutines(workers)
	for i, g := range genomes {
		i, g := i, g
		p.Go(func(ctx context.Context) (Result, error) {
			if err := ctx.Err(); err != nil {
				return Result{Index: i}, err
			}
			res := Result{Index: i}
			res.Fitness, res.Err = b.scoreOne(g)
			if res.Err != nil {
				log.WithFields(logrus.Fields{
					"index": i,
					"error": res.Err,
				}).Warn("genome scoring failed")
			}
			return res, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(a, c int) bool { return results[a].Index < results[c].Index })

	failed := 0
	best := 0.0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		best = max(best, r.Fitness)
	}
	log.WithFields(logrus.Fields{
		"genomes": len(genomes),
		"failed":  failed,
		"best":    best,
		"trials":  b.Trials,
		"workers": workers,
	}).Debug("batch scored")
	return results, nil
}

func (b Batch) scoreOne(g genome.Genome) (float64, error) {
	if g == nil {
		return 0, genome.Invalid("nil genome")
	}
	if err := g.Validate(); err != nil {
		return 0, err
	}
	target, err := b.Target.Reader(g.InputBytes())
	if err != nil {
		return 0, err
	}
	reference, err := b.Reference.Reader(g.InputBytes())
	if err != nil {
		return 0, err
	}
	return b.Options.Evaluate(g, target, reference, b.Trials)
}
