package stages

import (
	"bytes"
	"context"
	"strconv"

	"github.com/bodspipeline/bodspipeline/pkg/aggregation"
	"github.com/bodspipeline/bodspipeline/pkg/netex"
	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/pti"
	"github.com/rs/zerolog/log"
)

// PTICheck runs the publication profile observations over one timetable
// file. Violations are written to the task's metadata rows for the
// report; they never fail the stage.
func (h *Handlers) PTICheck(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	body, err := objectstore.GetBytes(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return nil, err
	}

	doc, err := pti.ParseDocument(bytes.NewReader(body), event.Filename())
	if err != nil {
		return nil, pipeline.NewValidationError(pipeline.ErrorXMLSyntax, "parsing %s: %s", event.Filename(), err)
	}

	violations, err := h.Engine.Check(ctx, doc)
	if err != nil {
		return nil, err
	}

	if len(violations) > 0 {
		taskID := strconv.Itoa(event.DatasetETLTaskResultID)
		if err := h.Metadata.PutViolations(ctx, taskID, event.Filename(), violations); err != nil {
			log.Error().Str("filename", event.Filename()).Err(err).Msg("Failed to record violations")
		}
	}

	return pipeline.OKResult(map[string]any{
		"violations": len(violations),
		"flexible":   doc.Flexible,
	}), nil
}

// FaresMetadata parses one NeTEx fares file and records its per-file
// metadata row for the aggregation stage.
func (h *Handlers) FaresMetadata(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	body, err := objectstore.GetBytes(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return nil, err
	}

	doc, err := netex.ParseXML(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	metadata := aggregation.FromNetex(doc, event.Filename())

	taskID := strconv.Itoa(event.DatasetETLTaskResultID)
	if err := h.Metadata.PutFileMetadata(ctx, taskID, metadata); err != nil {
		return nil, err
	}

	return pipeline.OKResult(map[string]any{
		"fareProducts": metadata.NumOfFareProducts,
		"fareZones":    metadata.NumOfFareZones,
		"lines":        metadata.NumOfLines,
		"stops":        len(metadata.StopPointIDs),
	}), nil
}

// AggregateFares reduces every per-file row for the task into the
// dataset-level fares record.
func (h *Handlers) AggregateFares(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	taskID := strconv.Itoa(event.DatasetETLTaskResultID)

	aggregate, err := h.Aggregator.Run(ctx, taskID, event.DatasetRevisionID)
	if err != nil {
		return nil, err
	}

	return pipeline.OKResult(map[string]any{
		"fareProducts": aggregate.NumOfFareProducts,
		"fareZones":    aggregate.NumOfFareZones,
		"lines":        aggregate.NumOfLines,
		"stops":        len(aggregate.StopIDs),
	}), nil
}
