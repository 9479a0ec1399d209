package circuit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/praveenmunagapati/eacirc/internal/gate"
	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/model"
	"github.com/praveenmunagapati/eacirc/internal/poly"
)

// Operation labels recorded on genome records.
const (
	OpInitialize = "initialize"
	OpMutate     = "mutate"
	OpCrossover  = "crossover"
	OpPrune      = "prune"
	OpImport     = "import"
)

// Encode wraps g in a persistable record.
func Encode(id string, g genome.Genome, operation string, parentIDs ...string) (model.GenomeRecord, error) {
	if err := g.Validate(); err != nil {
		return model.GenomeRecord{}, err
	}
	payload, err := json.Marshal(g)
	if err != nil {
		return model.GenomeRecord{}, fmt.Errorf("encode %s genome: %w", g.Kind(), err)
	}
	sizes := g.Sizes()
	return model.GenomeRecord{
		ID:           id,
		Kind:         string(g.Kind()),
		NumInputs:    sizes.NumInputs,
		NumOutputs:   sizes.NumOutputs,
		ParentIDs:    append([]string(nil), parentIDs...),
		Operation:    operation,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:      payload,
	}, nil
}

// Decode rebuilds and validates the genome a record carries.
func Decode(rec model.GenomeRecord) (genome.Genome, error) {
	kind, err := genome.ParseKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	var g genome.Genome
	switch kind {
	case genome.KindGate:
		g = &gate.Genome{}
	default:
		g = &poly.Genome{}
	}
	if err := json.Unmarshal(rec.Payload, g); err != nil {
		return nil, genome.Invalid("record %s: decode payload: %v", rec.ID, err)
	}
	if g.Sizes() != (genome.Sizes{NumInputs: rec.NumInputs, NumOutputs: rec.NumOutputs}) {
		return nil, genome.Invalid("record %s: payload sizes %+v disagree with envelope", rec.ID, g.Sizes())
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return g, nil
}
