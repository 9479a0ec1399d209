package model

import "encoding/json"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GenomeRecord is the persisted envelope of a genome of either kind. The
// kind-specific body travels as raw JSON in Payload.
type GenomeRecord struct {
	VersionedRecord
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	NumInputs    int             `json:"num_inputs"`
	NumOutputs   int             `json:"num_outputs"`
	ParentIDs    []string        `json:"parent_ids,omitempty"`
	Operation    string          `json:"operation"`
	CreatedAtUTC string          `json:"created_at_utc"`
	Payload      json.RawMessage `json:"payload"`
}

type ScoreRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	GenomeID     string  `json:"genome_id"`
	Fitness      float64 `json:"fitness"`
	Trials       int     `json:"trials"`
	Scorer       string  `json:"scorer"`
	Reduction    string  `json:"reduction,omitempty"`
	Target       string  `json:"target"`
	Reference    string  `json:"reference"`
	Seed         int64   `json:"seed"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// CircuitArtifact is a minimized gate circuit flattened into typed
// operations over named intermediate variables.
type CircuitArtifact struct {
	VersionedRecord
	GenomeID        string       `json:"genome_id"`
	InputLayerSize  int          `json:"input_layer_size"`
	OutputLayerSize int          `json:"output_layer_size"`
	Inputs          []string     `json:"inputs"`
	Ops             []ArtifactOp `json:"ops"`
	Outputs         []string     `json:"outputs"`
}

type ArtifactOp struct {
	Name     string   `json:"name"`
	Op       string   `json:"op"`
	Layer    int      `json:"layer"`
	Slot     int      `json:"slot"`
	Args     []string `json:"args"`
	Const    uint8    `json:"const"`
	UseConst bool     `json:"use_const,omitempty"`
}
