package stages

import (
	"context"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/rs/zerolog/log"
)

// FinaliseRevision marks the revision live and sweeps up task results
// left in STARTED by crashed invocations, marking them failed so the
// catalogue never shows a run as still in progress.
func (h *Handlers) FinaliseRevision(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	errorCode, err := h.Repository.GetErrorCode(string(pipeline.ErrorSuspiciousFile))
	if err != nil {
		return nil, err
	}

	reconciled, err := h.Repository.ReconcileStartedTasks(event.DatasetRevisionID, errorCode.ID)
	if err != nil {
		return nil, err
	}
	if reconciled > 0 {
		log.Warn().Int("revision_id", event.DatasetRevisionID).Int64("reconciled", reconciled).Msg("Closed dangling task results")
	}

	if err := h.Repository.UpdateRevisionStatus(event.DatasetRevisionID, catalogue.RevisionStatusLive); err != nil {
		return nil, err
	}

	return pipeline.OKResult(map[string]any{
		"revisionId": event.DatasetRevisionID,
		"status":     string(catalogue.RevisionStatusLive),
		"reconciled": reconciled,
	}), nil
}
