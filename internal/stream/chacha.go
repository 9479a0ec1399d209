package stream

import (
	"encoding/binary"
	"math/bits"
)

// chachaRounds is the ChaCha block function with a configurable round count,
// laid out as in RFC 8439: four constants, eight key words, a 32-bit block
// counter starting at zero, then three nonce words. Odd counts end on a
// column round.
type chachaRounds struct {
	state   [16]uint32
	rounds  int
	block   [64]byte
	pending []byte
}

func newChaChaRounds(key, nonce []byte, rounds int) *chachaRounds {
	c := &chachaRounds{rounds: rounds}
	c.state[0], c.state[1], c.state[2], c.state[3] = 0x61707865, 0x3320646e, 0x79622d32, 0x6b206574
	for i := 0; i < 8; i++ {
		c.state[4+i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	for i := 0; i < 3; i++ {
		c.state[13+i] = binary.LittleEndian.Uint32(nonce[4*i:])
	}
	return c
}

func quarterRound(x *[16]uint32, a, b, c, d int) {
	x[a] += x[b]
	x[d] = bits.RotateLeft32(x[d]^x[a], 16)
	x[c] += x[d]
	x[b] = bits.RotateLeft32(x[b]^x[c], 12)
	x[a] += x[b]
	x[d] = bits.RotateLeft32(x[d]^x[a], 8)
	x[c] += x[d]
	x[b] = bits.RotateLeft32(x[b]^x[c], 7)
}

func (c *chachaRounds) nextBlock() {
	x := c.state
	for r := 0; r < c.rounds; r++ {
		if r%2 == 0 {
			quarterRound(&x, 0, 4, 8, 12)
			quarterRound(&x, 1, 5, 9, 13)
			quarterRound(&x, 2, 6, 10, 14)
			quarterRound(&x, 3, 7, 11, 15)
		} else {
			quarterRound(&x, 0, 5, 10, 15)
			quarterRound(&x, 1, 6, 11, 12)
			quarterRound(&x, 2, 7, 8, 13)
			quarterRound(&x, 3, 4, 9, 14)
		}
	}
	for i := range x {
		binary.LittleEndian.PutUint32(c.block[4*i:], x[i]+c.state[i])
	}
	c.state[12]++
	c.pending = c.block[:]
}

func (c *chachaRounds) fill(dst []byte) {
	for len(dst) > 0 {
		if len(c.pending) == 0 {
			c.nextBlock()
		}
		n := copy(dst, c.pending)
		c.pending = c.pending[n:]
		dst = dst[n:]
	}
}
