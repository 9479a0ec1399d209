package storage

import (
	"context"
	"errors"

	"github.com/praveenmunagapati/eacirc/internal/model"
)

// Store persists genome records, their scores and minimized circuit
// artifacts. Get methods report absence with ok == false rather than an
// error.
type Store interface {
	Init(ctx context.Context) error
	SaveGenome(ctx context.Context, genome model.GenomeRecord) error
	GetGenome(ctx context.Context, id string) (model.GenomeRecord, bool, error)
	// ListGenomes returns every genome record ordered by ID.
	ListGenomes(ctx context.Context) ([]model.GenomeRecord, error)
	SaveScore(ctx context.Context, score model.ScoreRecord) error
	// ListScores returns the scores of one genome, oldest first.
	ListScores(ctx context.Context, genomeID string) ([]model.ScoreRecord, error)
	SaveArtifact(ctx context.Context, artifact model.CircuitArtifact) error
	GetArtifact(ctx context.Context, genomeID string) (model.CircuitArtifact, bool, error)
}

var ErrNotInitialized = errors.New("store is not initialized")
