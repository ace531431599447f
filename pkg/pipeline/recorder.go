package pipeline

import (
	"context"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/bodspipeline/bodspipeline/pkg/util"
)

const maxErrorMessageLength = 2000

// TaskRecorder is the slice of the catalogue repository the recorder
// needs. *catalogue.Repository satisfies it.
type TaskRecorder interface {
	GetOrCreateStep(name string, category catalogue.StepCategory) (*catalogue.PipelineStep, error)
	InsertTaskResult(taskResult *catalogue.ETLTaskResult) error
	UpdateTaskResult(taskResult *catalogue.ETLTaskResult) error
	GetErrorCode(code string) (*catalogue.PipelineErrorCode, error)
}

var connectRepository = func() (TaskRecorder, error) {
	return catalogue.NewRepository()
}

// Wrap decorates a stage with task-result recording. A catalogue outage at
// entry never stops the stage body from running; post-stage write failures
// are logged but the stage's own outcome always reaches the workflow
// engine.
func Wrap(stage Stage) StageFunc {
	return func(ctx context.Context, event *Event) (*Result, error) {
		ctx, processing := newProcessingContext(ctx, stage, event)
		logger := processing.Logger

		repository, err := connectRepository()
		if err != nil {
			logger.Error().Err(err).Msg("Failed to connect to catalogue, stage will run unrecorded")
		} else {
			processing.Repository = repository

			step, err := repository.GetOrCreateStep(stage.Name, stepCategory(event))
			if err != nil {
				logger.Error().Err(err).Msg("Failed to get or create pipeline step")
			} else {
				taskResult := &catalogue.ETLTaskResult{
					ID:         processing.TaskID,
					RevisionID: event.DatasetRevisionID,
					StepID:     step.ID,
					Filename:   event.Filename(),
					Status:     catalogue.TaskStatusStarted,
					StartedAt:  time.Now(),
				}

				if err := repository.InsertTaskResult(taskResult); err != nil {
					logger.Error().Err(err).Msg("Failed to insert task result")
				} else {
					processing.TaskResult = taskResult
				}
			}
		}

		result, stageErr := stage.Handler(ctx, event)

		if processing.TaskResult != nil && processing.Repository != nil {
			completed := time.Now()
			processing.TaskResult.CompletedAt = &completed

			if stageErr == nil {
				processing.TaskResult.Status = catalogue.TaskStatusSuccess
			} else {
				processing.TaskResult.Status = catalogue.TaskStatusFailure
				processing.TaskResult.ErrorMessage = util.TrimString(stageErr.Error(), maxErrorMessageLength)

				kind := KindOf(stageErr)
				errorCode, err := processing.Repository.GetErrorCode(string(kind))
				if err != nil {
					logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to resolve error code")
				} else {
					processing.TaskResult.ErrorCodeID = &errorCode.ID
				}
			}

			if err := processing.Repository.UpdateTaskResult(processing.TaskResult); err != nil {
				logger.Error().Err(err).Msg("Failed to persist task result")
			}
		}

		if stageErr != nil {
			logger.Error().Err(stageErr).
				Str("kind", string(KindOf(stageErr))).
				Bool("validation", IsValidation(stageErr)).
				Msg("Stage failed")

			return nil, stageErr
		}

		return result, nil
	}
}

func stepCategory(event *Event) catalogue.StepCategory {
	if event.DatasetType == "fares" {
		return catalogue.StepCategoryFares
	}

	return catalogue.StepCategoryTimetables
}
