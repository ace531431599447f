package mapresults

import (
	"path"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/supersession"
	"github.com/bodspipeline/bodspipeline/pkg/util"
	"github.com/rs/zerolog/log"
)

// AssembleNextMapInputs pairs each selected file with its succeeded
// extraction execution and emits the input list for the next map stage.
// Selected files with no matching succeeded execution are dropped with a
// log line; the workflow engine already recorded their failure.
func AssembleNextMapInputs(selections []supersession.Selection, succeeded []ExecutionRecord) []pipeline.Event {
	executionByFilename := map[string]*ExecutionInput{}

	for _, record := range succeeded {
		if record.ParsedInput == nil || record.ParsedInput.Key == "" {
			continue
		}
		executionByFilename[path.Base(record.ParsedInput.Key)] = record.ParsedInput
	}

	util.InPlaceFilter(&selections, func(selection supersession.Selection) bool {
		if _, exists := executionByFilename[selection.Attributes.Filename]; !exists {
			log.Info().
				Str("filename", selection.Attributes.Filename).
				Msg("No succeeded execution for selected file, dropping")
			return false
		}
		return true
	})

	var inputs []pipeline.Event

	for _, selection := range selections {
		input := executionByFilename[selection.Attributes.Filename]

		inputs = append(inputs, pipeline.Event{
			Bucket:                 input.Bucket,
			ObjectKey:              input.Key,
			DatasetRevisionID:      input.DatasetRevisionID,
			DatasetETLTaskResultID: input.DatasetETLTaskResultID,
			SupersededTimetable:    selection.Superseded,
			TXCFileAttributesID:    selection.Attributes.ID,
		})
	}

	return inputs
}
