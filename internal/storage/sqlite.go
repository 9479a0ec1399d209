//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/praveenmunagapati/eacirc/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveGenome(ctx context.Context, genome model.GenomeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	genome.VersionedRecord = currentVersion(genome.VersionedRecord)
	payload, err := EncodeGenome(genome)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO genomes (id, kind, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, genome.ID, genome.Kind, genome.SchemaVersion, genome.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetGenome(ctx context.Context, id string) (model.GenomeRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.GenomeRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM genomes WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GenomeRecord{}, false, nil
		}
		return model.GenomeRecord{}, false, err
	}

	genome, err := DecodeGenome(payload)
	if err != nil {
		return model.GenomeRecord{}, false, fmt.Errorf("decode genome %s: %w", id, err)
	}
	return genome, true, nil
}

func (s *SQLiteStore) ListGenomes(ctx context.Context) ([]model.GenomeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM genomes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GenomeRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		genome, err := DecodeGenome(payload)
		if err != nil {
			return nil, fmt.Errorf("decode genome %s: %w", id, err)
		}
		out = append(out, genome)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveScore(ctx context.Context, score model.ScoreRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeScore(score)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO scores (id, genome_id, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			genome_id = excluded.genome_id,
			payload = excluded.payload
	`, score.ID, score.GenomeID, payload)
	return err
}

func (s *SQLiteStore) ListScores(ctx context.Context, genomeID string) ([]model.ScoreRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM scores WHERE genome_id = ? ORDER BY seq`, genomeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScoreRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		score, err := DecodeScore(payload)
		if err != nil {
			return nil, fmt.Errorf("decode score for %s: %w", genomeID, err)
		}
		out = append(out, score)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveArtifact(ctx context.Context, artifact model.CircuitArtifact) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO artifacts (genome_id, payload)
		VALUES (?, ?)
		ON CONFLICT(genome_id) DO UPDATE SET
			payload = excluded.payload
	`, artifact.GenomeID, payload)
	return err
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, genomeID string) (model.CircuitArtifact, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CircuitArtifact{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM artifacts WHERE genome_id = ?`, genomeID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CircuitArtifact{}, false, nil
		}
		return model.CircuitArtifact{}, false, err
	}

	artifact, err := DecodeArtifact(payload)
	if err != nil {
		return model.CircuitArtifact{}, false, fmt.Errorf("decode artifact %s: %w", genomeID, err)
	}
	return artifact, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// scores keeps an autoincrement seq so a genome's history reads back in
// insertion order.
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS genomes (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS scores (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			genome_id TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS scores_genome_id ON scores (genome_id);
		CREATE TABLE IF NOT EXISTS artifacts (
			genome_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
