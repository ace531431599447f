package stages

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"

	"github.com/bodspipeline/bodspipeline/pkg/intake"
	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/rs/zerolog/log"
)

// DownloadDataset fetches the revision's source artifact, fingerprints
// and virus-scans it, then lands it in object storage for the rest of the
// pipeline.
func (h *Handlers) DownloadDataset(ctx context.Context, event *pipeline.Event) (*pipeline.Result, error) {
	revision, err := h.Repository.GetRevision(event.DatasetRevisionID)
	if err != nil {
		return nil, err
	}

	sourceURL := event.URLLink
	if sourceURL == "" {
		sourceURL = revision.URLLink
	}
	if sourceURL == "" {
		return nil, pipeline.NewValidationError(pipeline.ErrorDownloadOther, "revision %d has no source URL", revision.ID)
	}

	localPath, err := h.Downloader.Download(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	defer os.Remove(localPath)

	hash, err := intake.HashFile(localPath)
	if err != nil {
		return nil, err
	}
	if err := h.Repository.UpdateRevisionHash(revision.ID, hash); err != nil {
		return nil, err
	}

	if event.SkipVirusScan {
		log.Warn().Int("revision_id", revision.ID).Msg("Virus scan skipped by event flag")
	} else if err := h.Scanner.ScanFile(localPath); err != nil {
		return nil, err
	}

	uploadKey := fmt.Sprintf("datasets/%d/%s", revision.ID, downloadFilename(sourceURL, revision.ID))

	file, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if err := objectstore.Put(ctx, event.Bucket, uploadKey, file, info.Size(), "application/octet-stream"); err != nil {
		return nil, err
	}

	if err := h.Repository.UpdateRevisionUploadFile(revision.ID, uploadKey); err != nil {
		return nil, err
	}

	return pipeline.OKResult(map[string]any{
		"bucket":    event.Bucket,
		"objectKey": uploadKey,
		"hash":      hash,
	}), nil
}

func downloadFilename(sourceURL string, revisionID int) string {
	parsed, err := url.Parse(sourceURL)
	if err != nil || path.Base(parsed.Path) == "/" || path.Base(parsed.Path) == "." {
		return fmt.Sprintf("dataset_%d", revisionID)
	}

	return path.Base(parsed.Path)
}
