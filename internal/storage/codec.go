package storage

import (
	"encoding/json"
	"errors"

	"github.com/praveenmunagapati/eacirc/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// currentVersion stamps records saved without an explicit version.
func currentVersion(v model.VersionedRecord) model.VersionedRecord {
	if v.SchemaVersion == 0 && v.CodecVersion == 0 {
		return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	}
	return v
}

func EncodeGenome(g model.GenomeRecord) ([]byte, error) {
	g.VersionedRecord = currentVersion(g.VersionedRecord)
	return json.Marshal(g)
}

func DecodeGenome(data []byte) (model.GenomeRecord, error) {
	var genome model.GenomeRecord
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.GenomeRecord{}, err
	}
	if err := checkVersion(genome.VersionedRecord); err != nil {
		return model.GenomeRecord{}, err
	}
	return genome, nil
}

func EncodeScore(s model.ScoreRecord) ([]byte, error) {
	s.VersionedRecord = currentVersion(s.VersionedRecord)
	return json.Marshal(s)
}

func DecodeScore(data []byte) (model.ScoreRecord, error) {
	var score model.ScoreRecord
	if err := json.Unmarshal(data, &score); err != nil {
		return model.ScoreRecord{}, err
	}
	if err := checkVersion(score.VersionedRecord); err != nil {
		return model.ScoreRecord{}, err
	}
	return score, nil
}

func EncodeArtifact(a model.CircuitArtifact) ([]byte, error) {
	a.VersionedRecord = currentVersion(a.VersionedRecord)
	return json.Marshal(a)
}

func DecodeArtifact(data []byte) (model.CircuitArtifact, error) {
	var artifact model.CircuitArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return model.CircuitArtifact{}, err
	}
	if err := checkVersion(artifact.VersionedRecord); err != nil {
		return model.CircuitArtifact{}, err
	}
	return artifact, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
