package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/praveenmunagapati/eacirc/internal/config"
	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/storage"
	"github.com/praveenmunagapati/eacirc/internal/stream"
	api "github.com/praveenmunagapati/eacirc/pkg/eacirc"
)

const defaultDBPath = "eacirc.bolt"

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "score":
		return runScore(ctx, args[1:])
	case "mutate":
		return runMutate(ctx, args[1:])
	case "crossover":
		return runCrossover(ctx, args[1:])
	case "prune":
		return runPrune(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "list":
		return runList(ctx, args[1:])
	case "stream":
		return runStream(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// common holds the flags every store-backed command accepts.
type common struct {
	configPath *string
	storeKind  *string
	dbPath     *string
	logLevel   *string
}

func addCommon(fs *flag.FlagSet) common {
	return common{
		configPath: fs.String("config", "", "run config path (.yaml, .yml or .toml)"),
		storeKind:  fs.String("store", "", "store backend: memory|bolt|sqlite (overrides config)"),
		dbPath:     fs.String("db-path", "", "database path for bolt or sqlite (overrides config)"),
		logLevel:   fs.String("log-level", "info", "log level: debug|info|warn|error"),
	}
}

func (c common) load() (config.Config, error) {
	if *c.configPath != "" {
		return config.Load(*c.configPath)
	}
	cfg := config.Default()
	cfg.Store = config.StoreConfig{Kind: storage.DefaultStoreKind(), Path: defaultDBPath}
	if err := config.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Normalize(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (c common) open(ctx context.Context, cfg config.Config) (*api.Client, error) {
	logger, err := newLogger(*c.logLevel)
	if err != nil {
		return nil, err
	}
	storeKind := cfg.Store.Kind
	if *c.storeKind != "" {
		storeKind = *c.storeKind
	}
	dbPath := cfg.Store.Path
	if *c.dbPath != "" {
		dbPath = *c.dbPath
	}

	client, err := api.New(api.Options{StoreKind: storeKind, DBPath: dbPath, Logger: logger})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	c := addCommon(fs)
	count := fs.Int("count", 10, "number of random genomes to create")
	seed := fs.Uint64("seed", 0, "rng seed (0 keeps the config seed)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	created, err := client.Initialize(ctx, api.InitializeRequest{Config: cfg, Count: *count})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "initialized kind=%s count=%d\n", cfg.Circuit.Kind, len(created))
	for _, g := range created {
		fmt.Fprintln(stdout, g.ID)
	}
	return nil
}

func runScore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	c := addCommon(fs)
	ids := fs.String("ids", "", "comma-separated genome ids (empty scores every matching genome)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Score(ctx, api.ScoreRequest{Config: cfg, GenomeIDs: splitIDs(*ids)})
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Error != "" {
			fmt.Fprintf(stdout, "%s error=%q\n", item.GenomeID, item.Error)
			continue
		}
		fmt.Fprintf(stdout, "%s fitness=%.6f\n", item.GenomeID, item.Fitness)
	}
	return nil
}

func runMutate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mutate", flag.ContinueOnError)
	c := addCommon(fs)
	id := fs.String("id", "", "genome id")
	seed := fs.Uint64("seed", 0, "rng seed (0 keeps the config seed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("mutate requires --id")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	child, err := client.Mutate(ctx, api.MutateRequest{Config: cfg, GenomeID: *id})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "mutated %s -> %s\n", *id, child.ID)
	return nil
}

func runCrossover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("crossover", flag.ContinueOnError)
	c := addCommon(fs)
	a := fs.String("a", "", "first parent id")
	b := fs.String("b", "", "second parent id")
	seed := fs.Uint64("seed", 0, "rng seed (0 keeps the config seed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *a == "" || *b == "" {
		return usageError("crossover requires --a and --b")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Run.Seed = *seed
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	child, err := client.Crossover(ctx, api.CrossoverRequest{Config: cfg, ParentA: *a, ParentB: *b})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "crossover %s x %s -> %s\n", *a, *b, child.ID)
	return nil
}

func runPrune(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	c := addCommon(fs)
	id := fs.String("id", "", "gate circuit genome id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("prune requires --id")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Prune(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "pruned %s -> %s nodes=%d->%d live_inputs=%d\n",
		summary.GenomeID, summary.PrunedID, summary.NodesBefore, summary.NodesAfter, summary.LiveInputs)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	c := addCommon(fs)
	id := fs.String("id", "", "genome id")
	format := fs.String("format", api.FormatJSON, "output format: c|json|text")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("export requires --id")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	rendered, err := client.Export(ctx, api.ExportRequest{GenomeID: *id, Format: *format})
	if err != nil {
		return err
	}
	if *out == "" {
		fmt.Fprintln(stdout, rendered)
		return nil
	}
	if err := os.WriteFile(*out, []byte(rendered+"\n"), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %s format=%s to %s (%s)\n", *id, *format, *out, humanize.Bytes(uint64(len(rendered)+1)))
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	c := addCommon(fs)
	id := fs.String("id", "", "genome id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("show requires --id")
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	detail, err := client.Show(ctx, *id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

func runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	c := addCommon(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.load()
	if err != nil {
		return err
	}
	client, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	genomes, err := client.Genomes(ctx)
	if err != nil {
		return err
	}
	for _, g := range genomes {
		fmt.Fprintf(stdout, "%s kind=%s sizes=%dx%d op=%s parents=%s\n",
			g.ID, g.Kind, g.NumInputs, g.NumOutputs, g.Operation, strings.Join(g.ParentIDs, ","))
	}
	return nil
}

func runStream(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	kind := fs.String("type", stream.TypePRNG, "stream type: "+strings.Join(stream.Types(), "|"))
	size := fs.Int("size", 16, "bytes per sample")
	count := fs.Int("count", 16, "number of samples")
	seed := fs.Uint64("seed", 1, "seed for seeded streams")
	path := fs.String("path", "", "input file for the file stream")
	position := fs.Int("position", 0, "bit offset for sac-fixed-position")
	primitive := fs.String("primitive", "", "primitive name: "+strings.Join(stream.PrimitiveNames(), "|"))
	rounds := fs.Int("rounds", 0, "primitive round count (0 means full)")
	out := fs.String("out", "", "write raw bytes to this file instead of hex to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := stream.Config{
		Type:       *kind,
		OutputSize: *size,
		Path:       *path,
		Position:   *position,
		Primitive:  *primitive,
		Rounds:     *rounds,
	}
	data, err := api.Sample(cfg, *seed, *count)
	if err != nil {
		return err
	}
	if *out == "" {
		for i := 0; i < len(data); i += *size {
			fmt.Fprintln(stdout, hex.EncodeToString(data[i:min(i+*size, len(data))]))
		}
		return nil
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d samples of %s) to %s\n",
		humanize.Bytes(uint64(len(data))), *count, humanize.Bytes(uint64(*size)), *out)
	return nil
}

func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	out := fs.String("out", "eacirc.yaml", "where to write the default config (.yaml or .toml)")
	kind := fs.String("kind", "gate", "genome kind: gate|polynomial")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := genome.ParseKind(*kind)
	if err != nil {
		return err
	}
	cfg := config.Default()
	cfg.Circuit.Kind = parsed
	if parsed == genome.KindPolynomial {
		cfg.Circuit.Sizes = genome.Sizes{NumInputs: 128, NumOutputs: 1}
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := config.Save(*out, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote default %s config to %s\n", cfg.Circuit.Kind, *out)
	return nil
}

func newLogger(level string) (*logrus.Logger, error) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, usageError(fmt.Sprintf("invalid log level: %s", level))
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(parsed)
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: eacircctl <init|score|mutate|crossover|prune|export|show|list|stream|config> [flags]", msg)
}
