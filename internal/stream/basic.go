package stream

import (
	xrand "golang.org/x/exp/rand"
)

type constantStream struct {
	data []byte
}

// NewConstant returns a stream repeating osize copies of value.
func NewConstant(value byte, osize int) Stream {
	data := make([]byte, osize)
	for i := range data {
		data[i] = value
	}
	return &constantStream{data: data}
}

func (s *constantStream) OutputSize() int { return len(s.data) }

func (s *constantStream) Next() ([]byte, error) {
	return s.data, nil
}

// counterStream is a little-endian counter over osize bytes. Next returns
// the current value and then increments, so the first buffer is all zeros.
type counterStream struct {
	value []byte
	out   []byte
}

func NewCounter(osize int) Stream {
	return &counterStream{value: make([]byte, osize), out: make([]byte, osize)}
}

func (s *counterStream) OutputSize() int { return len(s.value) }

func (s *counterStream) Next() ([]byte, error) {
	copy(s.out, s.value)
	for i := range s.value {
		s.value[i]++
		if s.value[i] != 0 {
			break
		}
	}
	return s.out, nil
}

type rngStream struct {
	rng  *xrand.Rand
	data []byte
}

// NewPRNG returns a stream of pseudo-random bytes from a PCG generator.
func NewPRNG(seeds *SeedSource, osize int) Stream {
	return &rngStream{rng: seeds.newGenerator(), data: make([]byte, osize)}
}

func (s *rngStream) OutputSize() int { return len(s.data) }

func (s *rngStream) Next() ([]byte, error) {
	_, _ = s.rng.Read(s.data)
	return s.data, nil
}
