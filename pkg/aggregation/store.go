// Package aggregation folds per-file fares metadata into one
// dataset-level record. Stages write per-file rows into the key-value
// store as they process; the aggregation stage reads the whole task back
// and reduces it.
package aggregation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bodspipeline/bodspipeline/pkg/pti"
	"github.com/bodspipeline/bodspipeline/pkg/redis_client"
)

const taskKeyPrefix = "etlmeta:"
const metadataFieldPrefix = "METADATA#"
const violationFieldPrefix = "VIOLATION#"

// Task rows only need to survive one pipeline run.
const taskTTL = 24 * time.Hour

type Store struct {
	Client *redis.Client
}

func NewStore() *Store {
	return &Store{Client: redis_client.Client}
}

func taskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

func (s *Store) PutFileMetadata(ctx context.Context, taskID string, metadata *FileMetadata) error {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	pipe := s.Client.Pipeline()
	pipe.HSet(ctx, taskKey(taskID), metadataFieldPrefix+metadata.Filename, encoded)
	pipe.Expire(ctx, taskKey(taskID), taskTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) PutViolations(ctx context.Context, taskID string, filename string, violations []pti.Violation) error {
	encoded, err := json.Marshal(violations)
	if err != nil {
		return err
	}

	pipe := s.Client.Pipeline()
	pipe.HSet(ctx, taskKey(taskID), violationFieldPrefix+filename, encoded)
	pipe.Expire(ctx, taskKey(taskID), taskTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// ReadTask returns every row recorded for the task, split by field prefix
// into metadata and violations.
func (s *Store) ReadTask(ctx context.Context, taskID string) ([]FileMetadata, map[string][]pti.Violation, error) {
	fields, err := s.Client.HGetAll(ctx, taskKey(taskID)).Result()
	if err != nil {
		return nil, nil, err
	}

	var files []FileMetadata
	violations := map[string][]pti.Violation{}

	for field, value := range fields {
		switch {
		case strings.HasPrefix(field, metadataFieldPrefix):
			var metadata FileMetadata
			if err := json.Unmarshal([]byte(value), &metadata); err != nil {
				return nil, nil, err
			}
			files = append(files, metadata)
		case strings.HasPrefix(field, violationFieldPrefix):
			var fileViolations []pti.Violation
			if err := json.Unmarshal([]byte(value), &fileViolations); err != nil {
				return nil, nil, err
			}
			violations[strings.TrimPrefix(field, violationFieldPrefix)] = fileViolations
		}
	}

	return files, violations, nil
}
