package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/praveenmunagapati/eacirc/internal/model"
)

// checkStoreRoundTrip drives one initialized store through every record type.
func checkStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	for _, id := range []string{"g2", "g1"} {
		genome := model.GenomeRecord{
			ID:         id,
			Kind:       "gate",
			NumInputs:  16,
			NumOutputs: 2,
			ParentIDs:  []string{"p0"},
			Operation:  "mutate",
			Payload:    []byte(`{"num_inputs":16}`),
		}
		if err := store.SaveGenome(ctx, genome); err != nil {
			t.Fatalf("save genome %s: %v", id, err)
		}
	}

	loaded, ok, err := store.GetGenome(ctx, "g1")
	if err != nil {
		t.Fatalf("get genome: %v", err)
	}
	if !ok {
		t.Fatal("expected genome g1")
	}
	if loaded.SchemaVersion != CurrentSchemaVersion || loaded.CodecVersion != CurrentCodecVersion {
		t.Fatalf("expected stamped versions, got %+v", loaded.VersionedRecord)
	}
	if loaded.Kind != "gate" || loaded.NumInputs != 16 || len(loaded.ParentIDs) != 1 || string(loaded.Payload) != `{"num_inputs":16}` {
		t.Fatalf("unexpected genome loaded: %+v", loaded)
	}
	if _, ok, err := store.GetGenome(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing genome, got ok=%v err=%v", ok, err)
	}

	all, err := store.ListGenomes(ctx)
	if err != nil {
		t.Fatalf("list genomes: %v", err)
	}
	if len(all) != 2 || all[0].ID != "g1" || all[1].ID != "g2" {
		t.Fatalf("expected genomes ordered by id, got %+v", all)
	}

	for i, fitness := range []float64{0.5, 0.75, 0.625} {
		score := model.ScoreRecord{
			ID:       "s" + string(rune('a'+i)),
			GenomeID: "g1",
			Fitness:  fitness,
			Trials:   100,
			Scorer:   "binary",
		}
		if err := store.SaveScore(ctx, score); err != nil {
			t.Fatalf("save score: %v", err)
		}
	}
	if err := store.SaveScore(ctx, model.ScoreRecord{ID: "other", GenomeID: "g2", Fitness: 0.1}); err != nil {
		t.Fatalf("save score: %v", err)
	}
	scores, err := store.ListScores(ctx, "g1")
	if err != nil {
		t.Fatalf("list scores: %v", err)
	}
	if len(scores) != 3 || scores[0].Fitness != 0.5 || scores[2].Fitness != 0.625 {
		t.Fatalf("expected g1 scores in insertion order, got %+v", scores)
	}
	if scores, err := store.ListScores(ctx, "g3"); err != nil || len(scores) != 0 {
		t.Fatalf("expected no scores for g3, got %+v err=%v", scores, err)
	}

	artifact := model.CircuitArtifact{
		GenomeID:        "g1",
		InputLayerSize:  16,
		OutputLayerSize: 2,
		Inputs:          []string{"VAR_IN_0"},
		Ops:             []model.ArtifactOp{{Name: "VAR_1_0_XOR", Op: "XOR", Layer: 0, Args: []string{"VAR_IN_0", "VAR_IN_0"}}},
		Outputs:         []string{"VAR_1_0_XOR", "VAR_IN_0"},
	}
	if err := store.SaveArtifact(ctx, artifact); err != nil {
		t.Fatalf("save artifact: %v", err)
	}
	gotArtifact, ok, err := store.GetArtifact(ctx, "g1")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if !ok || len(gotArtifact.Ops) != 1 || gotArtifact.Ops[0].Op != "XOR" || gotArtifact.Outputs[1] != "VAR_IN_0" {
		t.Fatalf("unexpected artifact: %+v ok=%v", gotArtifact, ok)
	}
	if _, ok, err := store.GetArtifact(ctx, "g2"); err != nil || ok {
		t.Fatalf("expected no artifact for g2, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	checkStoreRoundTrip(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveGenome(context.Background(), model.GenomeRecord{ID: "g1"})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestMemoryStoreCopiesSavedSlices(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	genome := model.GenomeRecord{ID: "g1", ParentIDs: []string{"p1"}, Payload: []byte(`{}`)}
	if err := store.SaveGenome(ctx, genome); err != nil {
		t.Fatalf("save genome: %v", err)
	}
	genome.ParentIDs[0] = "changed"
	loaded, _, err := store.GetGenome(ctx, "g1")
	if err != nil {
		t.Fatalf("get genome: %v", err)
	}
	if loaded.ParentIDs[0] != "p1" {
		t.Fatalf("store aliased caller slice: %+v", loaded.ParentIDs)
	}
}
