package stages

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/bodspipeline/bodspipeline/pkg/intake"
	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
)

// ExtractFiles verifies the uploaded artifact and fans its XML members
// out under the extraction prefix. A single XML is copied into the same
// folder shape because the downstream map iterates a folder.
func (h *Handlers) ExtractFiles(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	object, err := objectstore.Get(ctx, event.Bucket, event.ObjectKey)
	if err != nil {
		return nil, err
	}
	defer object.Close()

	tempFile, err := os.CreateTemp("", "bodspipeline-extract-")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, object); err != nil {
		tempFile.Close()
		return nil, err
	}
	if err := tempFile.Close(); err != nil {
		return nil, err
	}

	filename := event.Filename()
	stem := strings.TrimSuffix(filename, path.Ext(filename))
	prefix := intake.ExtractPrefix(stem, pipeline.RequestID(ctx))

	var result *intake.FanOutResult

	if strings.EqualFold(path.Ext(filename), ".zip") {
		if err := intake.VerifyZip(tempFile.Name(), intake.DefaultMaxUploadSize); err != nil {
			return nil, err
		}

		result, err = intake.FanOutZip(ctx, tempFile.Name(), event.Bucket, prefix)
		if err != nil {
			return nil, err
		}
	} else {
		result, err = intake.CopySingleXML(ctx, tempFile.Name(), filename, event.Bucket, prefix)
		if err != nil {
			return nil, err
		}
	}

	return pipeline.OKResult(map[string]any{
		"bucket":    event.Bucket,
		"prefix":    prefix,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}), nil
}
