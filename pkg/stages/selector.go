package stages

import (
	"context"

	"github.com/bodspipeline/bodspipeline/pkg/mapresults"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/supersession"
	"github.com/rs/zerolog/log"
)

// SelectFiles applies the supersession rules over the revision's file
// attribute rows and reports which files continue into the load map.
func (h *Handlers) SelectFiles(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	selections, err := h.selectForRevision(event.DatasetRevisionID)
	if err != nil {
		return nil, err
	}

	files := make([]map[string]any, 0, len(selections))
	for _, selection := range selections {
		files = append(files, map[string]any{
			"txcFileAttributesId": selection.Attributes.ID,
			"filename":            selection.Attributes.Filename,
			"serviceCode":         selection.Attributes.ServiceCode,
			"superseded":          selection.Superseded,
		})
	}

	return pipeline.OKResult(map[string]any{
		"files": files,
		"count": len(files),
	}), nil
}

func (h *Handlers) selectForRevision(revisionID int) ([]supersession.Selection, error) {
	attributes, err := h.Repository.GetFileAttributesForRevision(revisionID)
	if err != nil {
		return nil, err
	}

	if len(attributes) == 0 {
		return nil, pipeline.NewValidationError(pipeline.ErrorNoValidFileToProcess, "revision %d has no file attribute rows", revisionID)
	}

	return supersession.Select(attributes), nil
}

// ReduceMapResults folds the map run's per-child outcomes back in,
// archives the processed files and assembles the next map's inputs.
func (h *Handlers) ReduceMapResults(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	runID := mapresults.RunID(event.MapRunArn)

	reduced, err := h.Reducer.Reduce(ctx, event.Bucket, event.OutputPrefix, runID)
	if err != nil {
		return nil, err
	}

	selections, err := h.selectForRevision(event.DatasetRevisionID)
	if err != nil {
		return nil, err
	}

	nextInputs := mapresults.AssembleNextMapInputs(selections, reduced.Succeeded)

	var processedKeys []string
	for _, record := range reduced.Succeeded {
		if record.ParsedInput != nil && record.ParsedInput.Key != "" {
			processedKeys = append(processedKeys, record.ParsedInput.Key)
		}
	}

	archiveKey := ""
	if len(processedKeys) > 0 {
		archiveKey, err = mapresults.WriteProcessedArchive(ctx, event.Bucket, processedKeys, event.OutputPrefix)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write processed archive")
			archiveKey = ""
		}
	}

	return pipeline.OKResult(map[string]any{
		"succeeded": len(reduced.Succeeded),
		"failed":    len(reduced.Failed),
		"inputs":    nextInputs,
		"archive":   archiveKey,
	}), nil
}
