// Package genome holds the contract shared by every circuit representation:
// size parameters, the validity predicate and the error kinds the search
// engine reacts to.
package genome

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGenome marks a violated structural invariant. It is fatal for
	// the affected individual only.
	ErrInvalidGenome = errors.New("invalid genome")
	// ErrConfiguration marks bad setup parameters. It is fatal at setup time.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotApplicable is returned by operators a representation does not support.
	ErrNotApplicable = errors.New("operation not applicable")
)

type Kind string

const (
	KindGate       Kind = "gate"
	KindPolynomial Kind = "polynomial"
)

func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindGate, "gate-circuit", "circuit":
		return KindGate, nil
	case KindPolynomial, "poly":
		return KindPolynomial, nil
	default:
		return "", fmt.Errorf("%w: unknown genome kind %q", ErrConfiguration, raw)
	}
}

// Sizes are fixed for a whole search run. Every genome of a population
// shares them.
type Sizes struct {
	NumInputs  int `json:"num_inputs" yaml:"num_inputs" toml:"num_inputs"`
	NumOutputs int `json:"num_outputs" yaml:"num_outputs" toml:"num_outputs"`
}

func (s Sizes) Validate() error {
	if s.NumInputs <= 0 {
		return fmt.Errorf("%w: input size must be > 0, got %d", ErrConfiguration, s.NumInputs)
	}
	if s.NumOutputs <= 0 {
		return fmt.Errorf("%w: output size must be > 0, got %d", ErrConfiguration, s.NumOutputs)
	}
	return nil
}

// Genome is a candidate circuit. Evaluate is pure: it touches nothing but its
// receiver and argument, so distinct goroutines may evaluate concurrently.
type Genome interface {
	Kind() Kind
	Sizes() Sizes
	// InputBytes is the byte length Evaluate expects.
	InputBytes() int
	// OutputBytes is the byte length Evaluate returns.
	OutputBytes() int
	Validate() error
	Evaluate(input []byte) ([]byte, error)
}

// Invalid wraps a formatted message with ErrInvalidGenome.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGenome, fmt.Sprintf(format, args...))
}

// Misconfigured wraps a formatted message with ErrConfiguration.
func Misconfigured(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// SameSizes reports an ErrInvalidGenome when two parents were not drawn
// from the same configuration.
func SameSizes(a, b Genome) error {
	if a == nil || b == nil {
		return Invalid("nil parent")
	}
	if a.Kind() != b.Kind() {
		return Invalid("parent kinds differ: %s vs %s", a.Kind(), b.Kind())
	}
	if a.Sizes() != b.Sizes() {
		return Invalid("parent sizes differ: %+v vs %+v", a.Sizes(), b.Sizes())
	}
	return nil
}
