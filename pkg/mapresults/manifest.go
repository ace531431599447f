// Package mapresults consumes the result manifest the workflow engine
// writes after fanning a map run out over the revision's files.
package mapresults

import (
	"encoding/json"
	"strings"
)

type ExecutionStatus string

const (
	ExecutionSucceeded      ExecutionStatus = "SUCCEEDED"
	ExecutionFailed         ExecutionStatus = "FAILED"
	ExecutionTimedOut       ExecutionStatus = "TIMED_OUT"
	ExecutionAborted        ExecutionStatus = "ABORTED"
	ExecutionRunning        ExecutionStatus = "RUNNING"
	ExecutionPendingRedrive ExecutionStatus = "PENDING_REDRIVE"
)

type Manifest struct {
	DestinationBucket string
	MapRunArn         string

	ResultFiles ResultFiles
}

type ResultFiles struct {
	Succeeded []ResultFileRef `json:"SUCCEEDED"`
	Failed    []ResultFileRef `json:"FAILED"`
	Pending   []ResultFileRef `json:"PENDING"`
}

type ResultFileRef struct {
	Key  string
	Size int64
}

// ExecutionRecord is one child execution's outcome inside a result file.
// Cause and Error only appear on failures, and not always even then.
type ExecutionRecord struct {
	ExecutionArn  string
	Input         string
	Name          string
	Status        ExecutionStatus
	RedriveStatus string
	RedriveCount  int
	StartDate     string
	StopDate      string
	Cause         string
	Error         string

	// ParsedInput is the re-parsed Input string; nil when the inner JSON
	// is malformed.
	ParsedInput *ExecutionInput `json:"-"`
}

// ExecutionInput is the inner JSON of an execution record's Input string.
// Producers use two spellings for every field.
type ExecutionInput struct {
	Bucket                 string
	Key                    string
	DatasetRevisionID      int
	DatasetETLTaskResultID int
}

func (input *ExecutionInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Bucket                    string
		MapS3Bucket               string `json:"mapS3Bucket"`
		Key                       string
		MapS3Object               string `json:"mapS3Object"`
		DatasetRevisionID         int    `json:"DatasetRevisionId"`
		MapDatasetRevisionID      int    `json:"mapDatasetRevisionId"`
		DatasetETLTaskResultID    int    `json:"DatasetEtlTaskResultId"`
		MapDatasetETLTaskResultID int    `json:"mapDatasetEtlTaskResultId"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	input.Bucket = firstNonEmpty(raw.Bucket, raw.MapS3Bucket)
	input.Key = firstNonEmpty(raw.Key, raw.MapS3Object)
	input.DatasetRevisionID = firstNonZero(raw.DatasetRevisionID, raw.MapDatasetRevisionID)
	input.DatasetETLTaskResultID = firstNonZero(raw.DatasetETLTaskResultID, raw.MapDatasetETLTaskResultID)

	return nil
}

func ParseManifest(body []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// ParseResultFile parses a result file's JSON array, re-parsing each
// record's Input string. A malformed inner Input never fails the file.
func ParseResultFile(body []byte) ([]ExecutionRecord, error) {
	var records []ExecutionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, err
	}

	for i := range records {
		var input ExecutionInput
		if err := json.Unmarshal([]byte(records[i].Input), &input); err == nil {
			records[i].ParsedInput = &input
		}
	}

	return records, nil
}

// RunID extracts the map run identifier from its ARN; result objects are
// keyed under it. A bare id passes through unchanged.
func RunID(mapRunArn string) string {
	id := mapRunArn
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, value := range values {
		if value != 0 {
			return value
		}
	}
	return 0
}
