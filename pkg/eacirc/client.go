// Package eacirc is the public facade over the circuit backends, the stream
// factory, fitness scoring and persistence.
package eacirc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/praveenmunagapati/eacirc/internal/circuit"
	"github.com/praveenmunagapati/eacirc/internal/config"
	"github.com/praveenmunagapati/eacirc/internal/fitness"
	"github.com/praveenmunagapati/eacirc/internal/gate"
	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/model"
	"github.com/praveenmunagapati/eacirc/internal/poly"
	"github.com/praveenmunagapati/eacirc/internal/storage"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

const defaultDBPath = "eacirc.bolt"

// ErrNotFound reports an unknown genome ID.
var ErrNotFound = errors.New("genome not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    logrus.FieldLogger
}

type Client struct {
	store storage.Store
	log   logrus.FieldLogger
}

type GenomeSummary struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	NumInputs  int      `json:"num_inputs"`
	NumOutputs int      `json:"num_outputs"`
	Operation  string   `json:"operation"`
	ParentIDs  []string `json:"parent_ids,omitempty"`
	CreatedAt  string   `json:"created_at_utc"`
}

type InitializeRequest struct {
	Config config.Config
	Count  int
}

type ScoreRequest struct {
	Config config.Config
	// GenomeIDs selects the genomes to score; empty scores every stored
	// genome matching the configured kind and sizes.
	GenomeIDs []string
}

type ScoreItem struct {
	GenomeID string  `json:"genome_id"`
	Fitness  float64 `json:"fitness"`
	Error    string  `json:"error,omitempty"`
}

type MutateRequest struct {
	Config   config.Config
	GenomeID string
}

type CrossoverRequest struct {
	Config  config.Config
	ParentA string
	ParentB string
}

type PruneSummary struct {
	GenomeID    string `json:"genome_id"`
	PrunedID    string `json:"pruned_id"`
	NodesBefore int    `json:"nodes_before"`
	NodesAfter  int    `json:"nodes_after"`
	LiveInputs  int    `json:"live_inputs"`
}

// Export formats.
const (
	FormatC    = "c"
	FormatJSON = "json"
	FormatText = "text"
)

type ExportRequest struct {
	GenomeID string
	Format   string
}

type GenomeDetail struct {
	GenomeSummary
	Scores      []model.ScoreRecord `json:"scores,omitempty"`
	HasArtifact bool                `json:"has_artifact"`
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, log: log}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Initialize creates req.Count random genomes and persists them.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) ([]GenomeSummary, error) {
	if req.Count <= 0 {
		return nil, genome.Misconfigured("count must be > 0, got %d", req.Count)
	}
	backend, err := circuit.New(req.Config.Circuit)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(int64(req.Config.Run.Seed)))

	out := make([]GenomeSummary, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		g, err := backend.Initialize(rng)
		if err != nil {
			return nil, err
		}
		rec, err := c.save(ctx, g, circuit.OpInitialize)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(rec))
	}
	c.log.WithFields(logrus.Fields{
		"kind":  backend.Kind(),
		"count": req.Count,
		"seed":  req.Config.Run.Seed,
	}).Info("genomes initialized")
	return out, nil
}

// Score evaluates genomes against datasets drawn once from the configured
// target and reference streams, then records every successful score.
func (c *Client) Score(ctx context.Context, req ScoreRequest) ([]ScoreItem, error) {
	cfg := req.Config
	backend, err := circuit.New(cfg.Circuit)
	if err != nil {
		return nil, err
	}
	if trials := backend.Config().Trials; cfg.Samples() < trials {
		return nil, genome.Misconfigured("dataset samples (%d) cannot cover %d trials", cfg.Samples(), trials)
	}
	records, err := c.selectRecords(ctx, req.GenomeIDs, backend.Config())
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	seeds := stream.NewSeedSource(cfg.Run.Seed)
	targetDS, err := buildDataset(cfg.Target, seeds, cfg.Samples()*backend.InputBytes())
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	referenceDS, err := buildDataset(cfg.Reference, seeds, cfg.Samples()*backend.InputBytes())
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	items := make([]ScoreItem, len(records))
	genomes := make([]genome.Genome, 0, len(records))
	slots := make([]int, 0, len(records))
	for i, rec := range records {
		items[i].GenomeID = rec.ID
		g, err := circuit.Decode(rec)
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		genomes = append(genomes, g)
		slots = append(slots, i)
	}

	batch := fitness.Batch{
		Target:    targetDS,
		Reference: referenceDS,
		Trials:    cfg.Circuit.Trials,
		Options:   cfg.Circuit.Fitness,
		Workers:   cfg.Run.Workers,
		Logger:    c.log,
	}
	results, err := batch.Evaluate(ctx, genomes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, res := range results {
		item := &items[slots[res.Index]]
		if res.Err != nil {
			item.Error = res.Err.Error()
			continue
		}
		item.Fitness = res.Fitness
		score := model.ScoreRecord{
			ID:           uuid.NewString(),
			GenomeID:     item.GenomeID,
			Fitness:      res.Fitness,
			Trials:       cfg.Circuit.Trials,
			Scorer:       string(cfg.Circuit.Fitness.Scorer),
			Reduction:    string(cfg.Circuit.Fitness.Reduction),
			Target:       cfg.Target.Type,
			Reference:    cfg.Reference.Type,
			Seed:         int64(cfg.Run.Seed),
			CreatedAtUTC: now,
		}
		if err := c.store.SaveScore(ctx, score); err != nil {
			return nil, fmt.Errorf("save score for %s: %w", item.GenomeID, err)
		}
	}
	return items, nil
}

// Mutate stores an edited copy of one genome.
func (c *Client) Mutate(ctx context.Context, req MutateRequest) (GenomeSummary, error) {
	backend, err := circuit.New(req.Config.Circuit)
	if err != nil {
		return GenomeSummary{}, err
	}
	parent, err := c.load(ctx, req.GenomeID)
	if err != nil {
		return GenomeSummary{}, err
	}
	rng := rand.New(rand.NewSource(int64(req.Config.Run.Seed)))
	child, err := backend.Mutate(rng, parent)
	if err != nil {
		return GenomeSummary{}, err
	}
	rec, err := c.save(ctx, child, circuit.OpMutate, req.GenomeID)
	if err != nil {
		return GenomeSummary{}, err
	}
	return summarize(rec), nil
}

// Crossover stores one child of two distinct parents.
func (c *Client) Crossover(ctx context.Context, req CrossoverRequest) (GenomeSummary, error) {
	backend, err := circuit.New(req.Config.Circuit)
	if err != nil {
		return GenomeSummary{}, err
	}
	if req.ParentA == req.ParentB {
		return GenomeSummary{}, fmt.Errorf("%w: crossover of %s with itself", genome.ErrNotApplicable, req.ParentA)
	}
	a, err := c.load(ctx, req.ParentA)
	if err != nil {
		return GenomeSummary{}, err
	}
	b, err := c.load(ctx, req.ParentB)
	if err != nil {
		return GenomeSummary{}, err
	}
	rng := rand.New(rand.NewSource(int64(req.Config.Run.Seed)))
	child, err := backend.Recombine(rng, a, b)
	if err != nil {
		return GenomeSummary{}, err
	}
	rec, err := c.save(ctx, child, circuit.OpCrossover, req.ParentA, req.ParentB)
	if err != nil {
		return GenomeSummary{}, err
	}
	return summarize(rec), nil
}

// Prune stores the minimized form of a gate circuit and its artifact.
// Polynomial genomes have no pruning pass.
func (c *Client) Prune(ctx context.Context, id string) (PruneSummary, error) {
	g, err := c.load(ctx, id)
	if err != nil {
		return PruneSummary{}, err
	}
	circ, ok := g.(*gate.Genome)
	if !ok {
		return PruneSummary{}, fmt.Errorf("%w: prune %s genome", genome.ErrNotApplicable, g.Kind())
	}
	pruned, err := gate.Prune(circ)
	if err != nil {
		return PruneSummary{}, err
	}
	rec, err := c.save(ctx, pruned, circuit.OpPrune, id)
	if err != nil {
		return PruneSummary{}, err
	}
	artifact, err := gate.Artifact(pruned)
	if err != nil {
		return PruneSummary{}, err
	}
	artifact.GenomeID = rec.ID
	if err := c.store.SaveArtifact(ctx, artifact); err != nil {
		return PruneSummary{}, fmt.Errorf("save artifact: %w", err)
	}

	summary := PruneSummary{
		GenomeID:    id,
		PrunedID:    rec.ID,
		NodesBefore: len(circ.Nodes),
		NodesAfter:  len(pruned.Nodes),
		LiveInputs:  len(artifact.Inputs),
	}
	c.log.WithFields(logrus.Fields{
		"genome_id":    id,
		"pruned_id":    rec.ID,
		"nodes_before": summary.NodesBefore,
		"nodes_after":  summary.NodesAfter,
	}).Info("circuit pruned")
	return summary, nil
}

// Export renders a stored genome. Gate circuits support c and json;
// polynomials support text and json.
func (c *Client) Export(ctx context.Context, req ExportRequest) (string, error) {
	g, err := c.load(ctx, req.GenomeID)
	if err != nil {
		return "", err
	}
	format := req.Format
	if format == "" {
		format = FormatJSON
	}

	switch typed := g.(type) {
	case *gate.Genome:
		artifact, ok, err := c.store.GetArtifact(ctx, req.GenomeID)
		if err != nil {
			return "", err
		}
		if !ok {
			if artifact, err = gate.Artifact(typed); err != nil {
				return "", err
			}
			artifact.GenomeID = req.GenomeID
		}
		switch format {
		case FormatC:
			return gate.RenderC(artifact)
		case FormatJSON:
			return marshalIndent(artifact)
		}
	case *poly.Genome:
		switch format {
		case FormatText:
			return typed.String(), nil
		case FormatJSON:
			return marshalIndent(typed)
		}
	}
	return "", fmt.Errorf("%w: export %s genome as %q", genome.ErrNotApplicable, g.Kind(), format)
}

// Genomes lists stored genomes ordered by ID.
func (c *Client) Genomes(ctx context.Context) ([]GenomeSummary, error) {
	records, err := c.store.ListGenomes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GenomeSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, summarize(rec))
	}
	return out, nil
}

func (c *Client) Show(ctx context.Context, id string) (GenomeDetail, error) {
	rec, ok, err := c.store.GetGenome(ctx, id)
	if err != nil {
		return GenomeDetail{}, err
	}
	if !ok {
		return GenomeDetail{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	scores, err := c.store.ListScores(ctx, id)
	if err != nil {
		return GenomeDetail{}, err
	}
	_, hasArtifact, err := c.store.GetArtifact(ctx, id)
	if err != nil {
		return GenomeDetail{}, err
	}
	return GenomeDetail{GenomeSummary: summarize(rec), Scores: scores, HasArtifact: hasArtifact}, nil
}

// Sample draws count buffers from one stream and concatenates them.
func Sample(cfg stream.Config, seed uint64, count int) ([]byte, error) {
	if count <= 0 {
		return nil, genome.Misconfigured("sample count must be > 0, got %d", count)
	}
	src, err := stream.New(cfg, stream.NewSeedSource(seed))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = stream.Close(src)
	}()
	ds, err := stream.Build(src, count*src.OutputSize())
	if err != nil {
		return nil, err
	}
	return ds.Bytes(), nil
}

func (c *Client) save(ctx context.Context, g genome.Genome, operation string, parentIDs ...string) (model.GenomeRecord, error) {
	rec, err := circuit.Encode(uuid.NewString(), g, operation, parentIDs...)
	if err != nil {
		return model.GenomeRecord{}, err
	}
	if err := c.store.SaveGenome(ctx, rec); err != nil {
		return model.GenomeRecord{}, fmt.Errorf("save genome %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (c *Client) load(ctx context.Context, id string) (genome.Genome, error) {
	rec, ok, err := c.store.GetGenome(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return circuit.Decode(rec)
}

func (c *Client) selectRecords(ctx context.Context, ids []string, cfg circuit.Config) ([]model.GenomeRecord, error) {
	if len(ids) > 0 {
		out := make([]model.GenomeRecord, 0, len(ids))
		for _, id := range ids {
			rec, ok, err := c.store.GetGenome(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			if err := matches(rec, cfg); err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	}

	all, err := c.store.ListGenomes(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if matches(rec, cfg) == nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matches(rec model.GenomeRecord, cfg circuit.Config) error {
	if rec.Kind != string(cfg.Kind) || rec.NumInputs != cfg.Sizes.NumInputs || rec.NumOutputs != cfg.Sizes.NumOutputs {
		return genome.Invalid("genome %s is a %s %dx%d, run expects %s %dx%d",
			rec.ID, rec.Kind, rec.NumInputs, rec.NumOutputs,
			cfg.Kind, cfg.Sizes.NumInputs, cfg.Sizes.NumOutputs)
	}
	return nil
}

func buildDataset(cfg stream.Config, seeds *stream.SeedSource, size int) (*stream.Dataset, error) {
	src, err := stream.New(cfg, seeds)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = stream.Close(src)
	}()
	return stream.Build(src, size)
}

func summarize(rec model.GenomeRecord) GenomeSummary {
	return GenomeSummary{
		ID:         rec.ID,
		Kind:       rec.Kind,
		NumInputs:  rec.NumInputs,
		NumOutputs: rec.NumOutputs,
		Operation:  rec.Operation,
		ParentIDs:  rec.ParentIDs,
		CreatedAt:  rec.CreatedAtUTC,
	}
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
