package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/praveenmunagapati/eacirc/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genomes     map[string]model.GenomeRecord
	scores      map[string][]model.ScoreRecord
	artifacts   map[string]model.CircuitArtifact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genomes = make(map[string]model.GenomeRecord)
	s.scores = make(map[string][]model.ScoreRecord)
	s.artifacts = make(map[string]model.CircuitArtifact)
	return nil
}

func (s *MemoryStore) SaveGenome(_ context.Context, genome model.GenomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	genome.VersionedRecord = currentVersion(genome.VersionedRecord)
	genome.ParentIDs = append([]string(nil), genome.ParentIDs...)
	genome.Payload = append([]byte(nil), genome.Payload...)
	s.genomes[genome.ID] = genome
	return nil
}

func (s *MemoryStore) GetGenome(_ context.Context, id string) (model.GenomeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.GenomeRecord{}, false, ErrNotInitialized
	}
	genome, ok := s.genomes[id]
	return genome, ok, nil
}

func (s *MemoryStore) ListGenomes(_ context.Context) ([]model.GenomeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]model.GenomeRecord, 0, len(s.genomes))
	for _, genome := range s.genomes {
		out = append(out, genome)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveScore(_ context.Context, score model.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	score.VersionedRecord = currentVersion(score.VersionedRecord)
	s.scores[score.GenomeID] = append(s.scores[score.GenomeID], score)
	return nil
}

func (s *MemoryStore) ListScores(_ context.Context, genomeID string) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	return append([]model.ScoreRecord(nil), s.scores[genomeID]...), nil
}

func (s *MemoryStore) SaveArtifact(_ context.Context, artifact model.CircuitArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	artifact.VersionedRecord = currentVersion(artifact.VersionedRecord)
	s.artifacts[artifact.GenomeID] = artifact
	return nil
}

func (s *MemoryStore) GetArtifact(_ context.Context, genomeID string) (model.CircuitArtifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.CircuitArtifact{}, false, ErrNotInitialized
	}
	artifact, ok := s.artifacts[genomeID]
	return artifact, ok, nil
}
