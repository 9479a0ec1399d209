package eacirc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/praveenmunagapati/eacirc/internal/config"
	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger, _ := test.NewNullLogger()
	client, err := New(Options{StoreKind: "memory", Logger: logger})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return client
}

func testConfig(t *testing.T, kind genome.Kind) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Circuit.Kind = kind
	cfg.Circuit.Trials = 64
	cfg.Run.Workers = 2
	if kind == genome.KindPolynomial {
		cfg.Circuit.Sizes = genome.Sizes{NumInputs: 32, NumOutputs: 1}
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize config: %v", err)
	}
	return cfg
}

func TestClientGateLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	cfg := testConfig(t, genome.KindGate)

	created, err := client.Initialize(ctx, InitializeRequest{Config: cfg, Count: 3})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(created) != 3 || created[0].Kind != "gate" || created[0].Operation != "initialize" {
		t.Fatalf("unexpected genomes: %+v", created)
	}

	items, err := client.Score(ctx, ScoreRequest{Config: cfg})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 score items, got %d", len(items))
	}
	for _, item := range items {
		if item.Error != "" {
			t.Fatalf("unexpected scoring error: %+v", item)
		}
		if item.Fitness < 0 || item.Fitness > 1 {
			t.Fatalf("fitness out of range: %+v", item)
		}
	}

	child, err := client.Mutate(ctx, MutateRequest{Config: cfg, GenomeID: created[0].ID})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if len(child.ParentIDs) != 1 || child.ParentIDs[0] != created[0].ID {
		t.Fatalf("mutated child lost its parent: %+v", child)
	}

	offspring, err := client.Crossover(ctx, CrossoverRequest{Config: cfg, ParentA: created[1].ID, ParentB: created[2].ID})
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if len(offspring.ParentIDs) != 2 {
		t.Fatalf("expected two parents, got %+v", offspring)
	}
	if _, err := client.Crossover(ctx, CrossoverRequest{Config: cfg, ParentA: created[1].ID, ParentB: created[1].ID}); !errors.Is(err, genome.ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for self-crossover, got %v", err)
	}

	pruned, err := client.Prune(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned.NodesAfter > pruned.NodesBefore {
		t.Fatalf("pruning grew the circuit: %+v", pruned)
	}

	source, err := client.Export(ctx, ExportRequest{GenomeID: pruned.PrunedID, Format: FormatC})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(source, "headerCircuit_inputLayerSize = 16") {
		t.Fatalf("unexpected C listing:\n%s", source)
	}
	if _, err := client.Export(ctx, ExportRequest{GenomeID: pruned.PrunedID, Format: FormatText}); !errors.Is(err, genome.ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for text export of a circuit, got %v", err)
	}

	detail, err := client.Show(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if len(detail.Scores) != 1 || detail.HasArtifact {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	prunedDetail, err := client.Show(ctx, pruned.PrunedID)
	if err != nil {
		t.Fatalf("show pruned: %v", err)
	}
	if !prunedDetail.HasArtifact || prunedDetail.Operation != "prune" {
		t.Fatalf("unexpected pruned detail: %+v", prunedDetail)
	}

	all, err := client.Genomes(ctx)
	if err != nil {
		t.Fatalf("genomes: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("expected 6 stored genomes, got %d", len(all))
	}
}

func TestClientPolynomialExportAndPrune(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	cfg := testConfig(t, genome.KindPolynomial)

	created, err := client.Initialize(ctx, InitializeRequest{Config: cfg, Count: 1})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	text, err := client.Export(ctx, ExportRequest{GenomeID: created[0].ID, Format: FormatText})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(text, "y0 = ") {
		t.Fatalf("unexpected polynomial text: %q", text)
	}
	if _, err := client.Prune(ctx, created[0].ID); !errors.Is(err, genome.ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
}

func TestClientScoreRejectsMismatchedGenome(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	polyCfg := testConfig(t, genome.KindPolynomial)
	created, err := client.Initialize(ctx, InitializeRequest{Config: polyCfg, Count: 1})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	gateCfg := testConfig(t, genome.KindGate)
	_, err = client.Score(ctx, ScoreRequest{Config: gateCfg, GenomeIDs: []string{created[0].ID}})
	if !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome, got %v", err)
	}
	items, err := client.Score(ctx, ScoreRequest{Config: gateCfg})
	if err != nil || len(items) != 0 {
		t.Fatalf("expected nothing to score, got %+v err=%v", items, err)
	}
}

func TestClientScoreRejectsShortDataset(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	cfg := testConfig(t, genome.KindGate)
	if _, err := client.Initialize(ctx, InitializeRequest{Config: cfg, Count: 1}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	cfg.Run.DatasetSamples = cfg.Circuit.Trials - 1
	if _, err := client.Score(ctx, ScoreRequest{Config: cfg}); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestClientUnknownGenome(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Show(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSample(t *testing.T) {
	data, err := Sample(stream.Config{Type: stream.TypeCounter, OutputSize: 2}, 0, 3)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	want := []byte{0, 0, 1, 0, 2, 0}
	if string(data) != string(want) {
		t.Fatalf("unexpected counter sample: %v", data)
	}
	if _, err := Sample(stream.Config{Type: stream.TypeCounter, OutputSize: 2}, 0, 0); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
