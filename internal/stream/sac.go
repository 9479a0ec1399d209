package stream

import (
	xrand "golang.org/x/exp/rand"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// SAC streams emit a random first half and a copy of it with one bit
// flipped in the second half.

type sacRandomStream struct {
	rng  *xrand.Rand
	data []byte
}

// NewSACRandomPosition flips one uniformly drawn bit of the second half.
func NewSACRandomPosition(seeds *SeedSource, osize int) (Stream, error) {
	if osize%2 != 0 {
		return nil, genome.Misconfigured("sac stream needs an even output size, got %d", osize)
	}
	return &sacRandomStream{rng: seeds.newGenerator(), data: make([]byte, osize)}, nil
}

func (s *sacRandomStream) OutputSize() int { return len(s.data) }

func (s *sacRandomStream) Next() ([]byte, error) {
	half := len(s.data) / 2
	fillHalves(s.rng, s.data)
	pos := half*8 + s.rng.Intn(half*8)
	flipBit(s.data, pos)
	return s.data, nil
}

type sacFixedStream struct {
	rng      *xrand.Rand
	data     []byte
	position int
}

// NewSACFixedPosition flips the bit at absolute offset position on every
// call.
func NewSACFixedPosition(seeds *SeedSource, osize, position int) (Stream, error) {
	if osize%2 != 0 {
		return nil, genome.Misconfigured("sac stream needs an even output size, got %d", osize)
	}
	if position < 0 || position >= osize*8 {
		return nil, genome.Misconfigured("flip position %d outside [0, %d)", position, osize*8)
	}
	return &sacFixedStream{rng: seeds.newGenerator(), data: make([]byte, osize), position: position}, nil
}

func (s *sacFixedStream) OutputSize() int { return len(s.data) }

func (s *sacFixedStream) Next() ([]byte, error) {
	fillHalves(s.rng, s.data)
	flipBit(s.data, s.position)
	return s.data, nil
}

// sacAllStream walks every bit of a base sample. Call 0 of a cycle draws
// a fresh base and returns it unmodified; call k in [1, osize*8] returns the
// base with bit k-1 flipped. The cycle is osize*8+1 calls long.
type sacAllStream struct {
	rng    *xrand.Rand
	base   []byte
	data   []byte
	offset int
}

func NewSACAllPositions(seeds *SeedSource, osize int) Stream {
	return &sacAllStream{
		rng:  seeds.newGenerator(),
		base: make([]byte, osize),
		data: make([]byte, osize),
	}
}

func (s *sacAllStream) OutputSize() int { return len(s.data) }

func (s *sacAllStream) Next() ([]byte, error) {
	if s.offset == 0 {
		_, _ = s.rng.Read(s.base)
		copy(s.data, s.base)
	} else {
		copy(s.data, s.base)
		flipBit(s.data, s.offset-1)
	}
	s.offset = (s.offset + 1) % (len(s.data)*8 + 1)
	return s.data, nil
}

func fillHalves(rng *xrand.Rand, data []byte) {
	half := len(data) / 2
	_, _ = rng.Read(data[:half])
	copy(data[half:], data[:half])
}

func flipBit(data []byte, pos int) {
	data[pos/8] ^= 1 << (pos % 8)
}
