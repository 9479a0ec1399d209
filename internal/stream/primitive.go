package stream

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/sha3"

	"github.com/praveenmunagapati/eacirc/internal/genome"
)

// Primitive names accepted by NewPrimitive.
const (
	PrimitiveSHA3    = "sha3-256"
	PrimitiveBLAKE2b = "blake2b"
	PrimitiveChaCha  = "chacha20"
	PrimitiveAESCTR  = "aes-ctr"
)

// PrimitiveConfig selects a primitive and its inputs. Key and Nonce are hex;
// empty values are drawn from the seed source. Rounds zero means the full
// round count. ChaCha20 accepts any count in [1, 20]; the other primitives
// only accept their full count.
type PrimitiveConfig struct {
	Name   string
	Key    string
	Nonce  string
	Rounds int
}

type primitiveDef struct {
	keySize    int
	nonceSize  int
	rounds     func(keySize int) int
	keySizes   []int
	nonceSizes []int // nil accepts any length
	build      func(key, nonce []byte) (keystream, error)
	// reduced builds a round-reduced variant, nil for fixed-round primitives.
	reduced func(key, nonce []byte, rounds int) keystream
}

// keystream writes the next len(dst) output bytes of a primitive.
type keystream interface {
	fill(dst []byte)
}

var primitives = map[string]primitiveDef{
	PrimitiveSHA3: {
		keySize:   32,
		nonceSize: 16,
		rounds:    func(int) int { return 24 },
		build: func(key, nonce []byte) (keystream, error) {
			return newHashCounter(sha3.New256(), key, nonce), nil
		},
	},
	PrimitiveBLAKE2b: {
		keySize:   32,
		nonceSize: 16,
		rounds:    func(int) int { return 12 },
		build: func(key, nonce []byte) (keystream, error) {
			h, err := blake2b.New512(key)
			if err != nil {
				return nil, err
			}
			return newHashCounter(h, nil, nonce), nil
		},
	},
	PrimitiveChaCha: {
		keySize:    chacha20.KeySize,
		nonceSize:  chacha20.NonceSize,
		keySizes:   []int{chacha20.KeySize},
		nonceSizes: []int{chacha20.NonceSize},
		rounds:     func(int) int { return 20 },
		build: func(key, nonce []byte) (keystream, error) {
			c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
			if err != nil {
				return nil, err
			}
			return cipherKeystream{s: c}, nil
		},
		reduced: func(key, nonce []byte, rounds int) keystream {
			return newChaChaRounds(key, nonce, rounds)
		},
	},
	PrimitiveAESCTR: {
		keySize:    16,
		nonceSize:  aes.BlockSize,
		keySizes:   []int{16, 24, 32},
		nonceSizes: []int{aes.BlockSize},
		rounds:     func(keySize int) int { return 6 + keySize/4 },
		build: func(key, nonce []byte) (keystream, error) {
			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return cipherKeystream{s: cipher.NewCTR(block, nonce)}, nil
		},
	},
}

// PrimitiveNames lists the supported primitives.
func PrimitiveNames() []string {
	return []string{PrimitiveSHA3, PrimitiveBLAKE2b, PrimitiveChaCha, PrimitiveAESCTR}
}

type primitiveStream struct {
	ks   keystream
	data []byte
}

// NewPrimitive streams the keystream (or counter-mode digest sequence) of a
// named primitive.
func NewPrimitive(cfg PrimitiveConfig, seeds *SeedSource, osize int) (Stream, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	prim, ok := primitives[name]
	if !ok {
		return nil, genome.Misconfigured("unknown primitive %q", cfg.Name)
	}
	key, err := primitiveBytes("key", cfg.Key, prim.keySize, seeds)
	if err != nil {
		return nil, err
	}
	if len(prim.keySizes) > 0 && !containsInt(prim.keySizes, len(key)) {
		return nil, genome.Misconfigured("%s key must be one of %v bytes, got %d", name, prim.keySizes, len(key))
	}
	nonce, err := primitiveBytes("nonce", cfg.Nonce, prim.nonceSize, seeds)
	if err != nil {
		return nil, err
	}
	if len(prim.nonceSizes) > 0 && !containsInt(prim.nonceSizes, len(nonce)) {
		return nil, genome.Misconfigured("%s nonce must be one of %v bytes, got %d", name, prim.nonceSizes, len(nonce))
	}
	full := prim.rounds(len(key))
	rounds := cfg.Rounds
	if rounds == 0 {
		rounds = full
	}
	var ks keystream
	switch {
	case rounds == full:
		ks, err = prim.build(key, nonce)
		if err != nil {
			return nil, genome.Misconfigured("%s: %v", name, err)
		}
	case prim.reduced == nil:
		return nil, genome.Misconfigured("%s runs a fixed %d rounds, got %d", name, full, cfg.Rounds)
	case rounds < 1 || rounds > full:
		return nil, genome.Misconfigured("%s rounds must be in [1, %d], got %d", name, full, cfg.Rounds)
	default:
		ks = prim.reduced(key, nonce, rounds)
	}
	return &primitiveStream{ks: ks, data: make([]byte, osize)}, nil
}

func (s *primitiveStream) OutputSize() int { return len(s.data) }

func (s *primitiveStream) Next() ([]byte, error) {
	s.ks.fill(s.data)
	return s.data, nil
}

func primitiveBytes(field, raw string, size int, seeds *SeedSource) ([]byte, error) {
	if raw == "" {
		out := make([]byte, size)
		seeds.Fill(out)
		return out, nil
	}
	out, err := hex.DecodeString(raw)
	if err != nil {
		return nil, genome.Misconfigured("primitive %s is not hex: %v", field, err)
	}
	return out, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

type cipherKeystream struct {
	s cipher.Stream
}

func (c cipherKeystream) fill(dst []byte) {
	clear(dst)
	c.s.XORKeyStream(dst, dst)
}

// hashCounter emits H(key || nonce || counter) blocks for counter = 0, 1, ...
type hashCounter struct {
	h       hash.Hash
	prefix  []byte
	counter uint64
	pending []byte
}

func newHashCounter(h hash.Hash, key, nonce []byte) *hashCounter {
	prefix := append(append([]byte(nil), key...), nonce...)
	return &hashCounter{h: h, prefix: prefix}
}

func (hc *hashCounter) fill(dst []byte) {
	for len(dst) > 0 {
		if len(hc.pending) == 0 {
			var ctr [8]byte
			binary.LittleEndian.PutUint64(ctr[:], hc.counter)
			hc.counter++
			hc.h.Reset()
			hc.h.Write(hc.prefix)
			hc.h.Write(ctr[:])
			hc.pending = hc.h.Sum(nil)
		}
		n := copy(dst, hc.pending)
		hc.pending = hc.pending[n:]
		dst = dst[n:]
	}
}
