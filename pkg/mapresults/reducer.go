package mapresults

import (
	"context"
	"fmt"
	"path"

	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/rs/zerolog/log"
)

const manifestFilename = "manifest.json"

type ReducedResults struct {
	Succeeded []ExecutionRecord
	Failed    []ExecutionRecord
}

// Reducer fans the per-child outcomes back in. Fetch is swappable for
// tests; the default reads the object store.
type Reducer struct {
	Fetch func(ctx context.Context, bucket string, key string) ([]byte, error)
}

func NewReducer() *Reducer {
	return &Reducer{Fetch: objectstore.GetBytes}
}

// Reduce fetches the manifest for the map run and aggregates every
// referenced result file. A missing or malformed manifest is fatal;
// everything after that tolerates partial data. Output order is succeeded
// first then failed, each in manifest order.
func (r *Reducer) Reduce(ctx context.Context, bucket string, prefix string, runID string) (*ReducedResults, error) {
	manifestKey := path.Join(prefix, runID, manifestFilename)

	body, err := r.Fetch(ctx, bucket, manifestKey)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", manifestKey, err)
	}

	manifest, err := ParseManifest(body)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", manifestKey, err)
	}

	results := &ReducedResults{}

	for _, ref := range manifest.ResultFiles.Succeeded {
		records, err := r.fetchResultFile(ctx, manifest, bucket, ref)
		if err != nil {
			return nil, err
		}
		results.Succeeded = append(results.Succeeded, records...)
	}

	for _, ref := range manifest.ResultFiles.Failed {
		records, err := r.fetchResultFile(ctx, manifest, bucket, ref)
		if err != nil {
			return nil, err
		}
		results.Failed = append(results.Failed, records...)
	}

	for _, record := range results.Failed {
		log.Info().
			Str("name", record.Name).
			Str("status", string(record.Status)).
			Str("error", record.Error).
			Msg("Failed map execution")
	}

	log.Info().
		Int("succeeded", len(results.Succeeded)).
		Int("failed", len(results.Failed)).
		Int("pending_files", len(manifest.ResultFiles.Pending)).
		Str("map_run", manifest.MapRunArn).
		Msg("Reduced map results")

	return results, nil
}

func (r *Reducer) fetchResultFile(ctx context.Context, manifest *Manifest, bucket string, ref ResultFileRef) ([]ExecutionRecord, error) {
	resultBucket := manifest.DestinationBucket
	if resultBucket == "" {
		resultBucket = bucket
	}

	body, err := r.Fetch(ctx, resultBucket, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("fetching result file %s: %w", ref.Key, err)
	}

	records, err := ParseResultFile(body)
	if err != nil {
		return nil, fmt.Errorf("parsing result file %s: %w", ref.Key, err)
	}

	return records, nil
}
