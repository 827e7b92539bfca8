package models

import (
	"time"
)

type UploadRequest struct {
	File        []byte
	Filename    string
	ContentType string
}

// RedactRequest is one upload to be redacted. Column and Sheet apply to
// tabular uploads only.
type RedactRequest struct {
	UploadRequest
	Column    string
	Sheet     string
	Overrides PolicyOverrides
}

// Artifact is one downloadable output of a redaction request.
type Artifact struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	StorageKey  string `json:"storage_key,omitempty"`
	Data        []byte `json:"-"`
}

const (
	ArtifactRedactedText   = "redacted.txt"
	ArtifactDetectionsCSV  = "detections.csv"
	ArtifactDetectionsJSON = "detections.json"
	ArtifactAnnotations    = "annotations.json"
)

// RedactionResult is the JSON summary returned for a redaction request.
type RedactionResult struct {
	ID             string            `json:"id"`
	Filename       string            `json:"filename"`
	InputKind      string            `json:"input_kind"`
	Policy         string            `json:"policy"`
	EntityTypes    []EntityType      `json:"entity_types"`
	RedactedText   string            `json:"redacted_text,omitempty"`
	Column         string            `json:"column,omitempty"`
	RedactedColumn string            `json:"redacted_column,omitempty"`
	RedactedRows   []string          `json:"redacted_rows,omitempty"`
	TotalRows      int               `json:"total_rows,omitempty"`
	TextRows       int               `json:"text_rows,omitempty"`
	RawCount       int               `json:"raw_count"`
	DetectionCount int               `json:"detection_count"`
	Detections     []DetectionRecord `json:"detections"`
	Warnings       []string          `json:"warnings,omitempty"`
	Artifacts      []Artifact        `json:"artifacts"`
	ProcessedAt    time.Time         `json:"processed_at"`
}

const (
	InputKindText  = "text"
	InputKindTable = "table"
)

// Artifact returns the named artifact, if present.
func (r *RedactionResult) Artifact(name string) (*Artifact, bool) {
	for i := range r.Artifacts {
		if r.Artifacts[i].Name == name {
			return &r.Artifacts[i], true
		}
	}
	return nil, false
}

// TableColumns describes the header of an uploaded table so a client can
// pick the column to redact.
type TableColumns struct {
	Filename    string   `json:"filename"`
	Sheet       string   `json:"sheet,omitempty"`
	Sheets      []string `json:"sheets,omitempty"`
	Columns     []string `json:"columns"`
	TextColumns []string `json:"text_columns"`
	Rows        int      `json:"rows"`
}

type EntitiesResponse struct {
	Language    string       `json:"language"`
	Source      string       `json:"source"`
	EntityTypes []EntityType `json:"entity_types"`
}
