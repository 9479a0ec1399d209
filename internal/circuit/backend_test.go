package circuit

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/praveenmunagapati/eacirc/internal/genome"
	"github.com/praveenmunagapati/eacirc/internal/stream"
)

func newBackend(t *testing.T, kind genome.Kind) *Backend {
	t.Helper()
	cfg := DefaultConfig(kind, genome.Sizes{NumInputs: 16, NumOutputs: 2})
	cfg.Trials = 32
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	return b
}

func TestBackendHooksForBothKinds(t *testing.T) {
	for _, kind := range []genome.Kind{genome.KindGate, genome.KindPolynomial} {
		b := newBackend(t, kind)
		rng := rand.New(rand.NewSource(21))
		seeds := stream.NewSeedSource(21)

		a, err := b.Initialize(rng)
		if err != nil {
			t.Fatalf("%s initialize: %v", kind, err)
		}
		c, err := b.Initialize(rng)
		if err != nil {
			t.Fatalf("%s initialize: %v", kind, err)
		}
		child, err := b.Recombine(rng, a, c)
		if err != nil {
			t.Fatalf("%s recombine: %v", kind, err)
		}
		child, err = b.Mutate(rng, child)
		if err != nil {
			t.Fatalf("%s mutate: %v", kind, err)
		}
		if child.Kind() != kind {
			t.Fatalf("child kind %s, want %s", child.Kind(), kind)
		}

		target, err := stream.New(stream.Config{Type: "sac", OutputSize: b.InputBytes()}, seeds)
		if err != nil {
			t.Fatalf("target stream: %v", err)
		}
		reference, err := stream.New(stream.Config{Type: "prng", OutputSize: b.InputBytes()}, seeds)
		if err != nil {
			t.Fatalf("reference stream: %v", err)
		}
		score, err := b.Evaluate(child, target, reference)
		if err != nil {
			t.Fatalf("%s evaluate: %v", kind, err)
		}
		if score < 0 || score > 1 {
			t.Fatalf("%s score out of range: %v", kind, score)
		}

		if _, err := b.RecombineAsexual(a); !errors.Is(err, genome.ErrNotApplicable) {
			t.Fatalf("expected ErrNotApplicable, got %v", err)
		}
		if _, err := b.Recombine(rng, a, a); !errors.Is(err, genome.ErrNotApplicable) {
			t.Fatalf("expected ErrNotApplicable for self-crossover, got %v", err)
		}
	}
}

func TestBackendRejectsForeignGenomes(t *testing.T) {
	gates := newBackend(t, genome.KindGate)
	polys := newBackend(t, genome.KindPolynomial)
	rng := rand.New(rand.NewSource(1))
	p, err := polys.Initialize(rng)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := gates.Mutate(rng, p); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome, got %v", err)
	}
	g, err := gates.Initialize(rng)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := gates.Recombine(rng, g, p); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for mixed parents, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig("lattice", genome.Sizes{NumInputs: 4, NumOutputs: 1})
	if _, err := New(cfg); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for unknown kind, got %v", err)
	}
	cfg = DefaultConfig(genome.KindGate, genome.Sizes{NumInputs: 4, NumOutputs: 0})
	if _, err := New(cfg); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for zero outputs, got %v", err)
	}
	cfg = DefaultConfig(genome.KindPolynomial, genome.Sizes{NumInputs: 4, NumOutputs: 1})
	cfg.Trials = 0
	if _, err := New(cfg); !errors.Is(err, genome.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for zero trials, got %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, kind := range []genome.Kind{genome.KindGate, genome.KindPolynomial} {
		b := newBackend(t, kind)
		rng := rand.New(rand.NewSource(6))
		g, err := b.Initialize(rng)
		if err != nil {
			t.Fatalf("initialize: %v", err)
		}
		rec, err := Encode("g-1", g, OpInitialize)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if rec.Kind != string(kind) || rec.NumInputs != 16 || rec.Operation != OpInitialize {
			t.Fatalf("unexpected envelope: %+v", rec)
		}
		back, err := Decode(rec)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		input := bytes.Repeat([]byte{0xA5}, g.InputBytes())
		want, _ := g.Evaluate(input)
		got, err := back.Evaluate(input)
		if err != nil {
			t.Fatalf("evaluate decoded: %v", err)
		}
		if !bytes.Equal(want, got) {
			t.Fatalf("%s decoded genome behaves differently: %x vs %x", kind, got, want)
		}
	}
}

func TestDecodeRejectsCorruptPayload(t *testing.T) {
	b := newBackend(t, genome.KindGate)
	g, err := b.Initialize(rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	rec, err := Encode("g-2", g, OpInitialize)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec.NumOutputs = 5
	if _, err := Decode(rec); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for envelope mismatch, got %v", err)
	}
	rec.Payload = []byte(`{"num_inputs":16,"num_outputs":2,"nodes":[{"op":"XOR","inputs":[99]}],"layer_ends":[1],"outputs":[16,16]}`)
	rec.NumOutputs = 2
	if _, err := Decode(rec); !errors.Is(err, genome.ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for forward reference, got %v", err)
	}
}
