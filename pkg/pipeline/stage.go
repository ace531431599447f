package pipeline

import (
	"context"

	"github.com/bodspipeline/bodspipeline/pkg/catalogue"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result is what a successful stage hands back to the workflow engine.
type Result struct {
	StatusCode int            `json:"statusCode"`
	Body       map[string]any `json:"body"`
}

func OKResult(body map[string]any) *Result {
	return &Result{StatusCode: 200, Body: body}
}

// StageFunc is the contract every stage obeys: one event in, one result or
// error out. Stages communicate only through the event JSON and object
// store keys, never direct calls.
type StageFunc func(ctx context.Context, event *Event) (*Result, error)

type Stage struct {
	Name    string
	Handler StageFunc
}

// ProcessingContext is scoped to one stage invocation.
type ProcessingContext struct {
	TaskID   string
	StepName string

	Repository TaskRecorder
	TaskResult *catalogue.ETLTaskResult

	Logger zerolog.Logger
}

type processingContextKey struct{}

func newProcessingContext(ctx context.Context, stage Stage, event *Event) (context.Context, *ProcessingContext) {
	processing := &ProcessingContext{
		TaskID:   uuid.NewString(),
		StepName: stage.Name,
	}

	processing.Logger = log.With().
		Str("stage", stage.Name).
		Str("request_id", processing.TaskID).
		Logger()

	return context.WithValue(ctx, processingContextKey{}, processing), processing
}

// FromContext returns the invocation's ProcessingContext, or nil when the
// stage is being called outside the wrapper (tests mostly).
func FromContext(ctx context.Context) *ProcessingContext {
	processing, _ := ctx.Value(processingContextKey{}).(*ProcessingContext)
	return processing
}

// RequestID returns the invocation's fresh task id; extraction prefixes
// embed it so concurrent executions never contend.
func RequestID(ctx context.Context) string {
	if processing := FromContext(ctx); processing != nil {
		return processing.TaskID
	}

	return uuid.NewString()
}
