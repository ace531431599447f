package aggregation

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
)

type Aggregator struct {
	Store      *Store
	Repository *catalogue.Repository
}

func NewAggregator() (*Aggregator, error) {
	repository, err := catalogue.NewRepository()
	if err != nil {
		return nil, err
	}

	return &Aggregator{
		Store:      NewStore(),
		Repository: repository,
	}, nil
}

// Run reduces every per-file row recorded for the task and persists the
// dataset-level record, the per-file catalogue entries and the stop list.
func (a *Aggregator) Run(ctx context.Context, taskID string, revisionID int) (*catalogue.FaresMetadata, error) {
	files, _, err := a.Store.ReadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, pipeline.NewValidationError(pipeline.ErrorNoDataFound, "no file metadata recorded for task %s", taskID)
	}

	aggregate, entries := Aggregate(revisionID, files)

	if err := a.Repository.UpsertFaresMetadata(aggregate); err != nil {
		return nil, err
	}
	if err := a.Repository.UpsertDataCatalogue(entries); err != nil {
		return nil, err
	}

	log.Info().
		Str("task_id", taskID).
		Int("revision_id", revisionID).
		Int("files", len(files)).
		Int("stops", len(aggregate.StopIDs)).
		Msg("Aggregated fares metadata")

	return aggregate, nil
}
