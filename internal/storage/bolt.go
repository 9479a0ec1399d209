package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/praveenmunagapati/eacirc/internal/model"
)

var (
	genomesBucket   = []byte("genomes")
	scoresBucket    = []byte("scores")
	artifactsBucket = []byte("artifacts")
)

// BoltStore keeps every record as JSON in a single bbolt file. Scores are
// keyed by genome ID and a per-bucket sequence, so a prefix scan returns one
// genome's scores in insertion order.
type BoltStore struct {
	path string

	mu sync.RWMutex
	db *bbolt.DB
}

func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path}
}

func (s *BoltStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("bolt path is required")
	}
	if s.db != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{genomesBucket, scoresBucket, artifactsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("create buckets: %w", err)
	}

	s.db = db
	return nil
}

func (s *BoltStore) SaveGenome(_ context.Context, genome model.GenomeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeGenome(genome)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(genomesBucket).Put([]byte(genome.ID), payload)
	})
}

func (s *BoltStore) GetGenome(_ context.Context, id string) (model.GenomeRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.GenomeRecord{}, false, err
	}
	var payload []byte
	err = db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(genomesBucket).Get([]byte(id)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || payload == nil {
		return model.GenomeRecord{}, false, err
	}
	genome, err := DecodeGenome(payload)
	if err != nil {
		return model.GenomeRecord{}, false, fmt.Errorf("decode genome %s: %w", id, err)
	}
	return genome, true, nil
}

func (s *BoltStore) ListGenomes(_ context.Context) ([]model.GenomeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	var out []model.GenomeRecord
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(genomesBucket).ForEach(func(k, v []byte) error {
			genome, err := DecodeGenome(v)
			if err != nil {
				return fmt.Errorf("decode genome %s: %w", k, err)
			}
			out = append(out, genome)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) SaveScore(_ context.Context, score model.ScoreRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeScore(score)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(scoresBucket)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(scoreKey(score.GenomeID, seq), payload)
	})
}

func (s *BoltStore) ListScores(_ context.Context, genomeID string) ([]model.ScoreRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	prefix := scoreKey(genomeID, 0)[:len(genomeID)+1]
	var out []model.ScoreRecord
	err = db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(scoresBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			score, err := DecodeScore(v)
			if err != nil {
				return fmt.Errorf("decode score for %s: %w", genomeID, err)
			}
			out = append(out, score)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) SaveArtifact(_ context.Context, artifact model.CircuitArtifact) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(artifactsBucket).Put([]byte(artifact.GenomeID), payload)
	})
}

func (s *BoltStore) GetArtifact(_ context.Context, genomeID string) (model.CircuitArtifact, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CircuitArtifact{}, false, err
	}
	var payload []byte
	err = db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(artifactsBucket).Get([]byte(genomeID)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || payload == nil {
		return model.CircuitArtifact{}, false, err
	}
	artifact, err := DecodeArtifact(payload)
	if err != nil {
		return model.CircuitArtifact{}, false, fmt.Errorf("decode artifact %s: %w", genomeID, err)
	}
	return artifact, true, nil
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BoltStore) getDB() (*bbolt.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// scoreKey is genomeID, a zero separator, then the big-endian sequence.
func scoreKey(genomeID string, seq uint64) []byte {
	key := make([]byte, len(genomeID)+1+8)
	copy(key, genomeID)
	binary.BigEndian.PutUint64(key[len(genomeID)+1:], seq)
	return key
}
