package intake

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/bodspipeline/bodspipeline/pkg/util"
	"github.com/rs/zerolog/log"
)

const defaultExtractPrefix = "serverless-extracted"

type FanOutResult struct {
	Keys      []string
	Succeeded int
	Failed    int
}

// ExtractPrefix is where a revision's files land:
// <prefix>/<stem>/<requestID>/. The request id keeps concurrent runs for
// the same revision from contending.
func ExtractPrefix(stem string, requestID string) string {
	prefix := defaultExtractPrefix

	env := util.GetEnvironmentVariables()
	if env["BODSPIPE_EXTRACT_PREFIX"] != "" {
		prefix = env["BODSPIPE_EXTRACT_PREFIX"]
	}

	return path.Join(prefix, stem, requestID)
}

// FanOutZip streams the archive's XML members one at a time into object
// storage; one bad member never aborts the rest. Non-XML members are
// filtered out.
func FanOutZip(ctx context.Context, zipPath string, bucket string, prefix string) (*FanOutResult, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, pipeline.NewValidationError(pipeline.ErrorSuspiciousFile, "opening zip: %s", err)
	}
	defer reader.Close()

	result := &FanOutResult{}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name), ".xml") {
			continue
		}

		key := path.Join(prefix, path.Base(entry.Name))

		if err := uploadZipEntry(ctx, entry, bucket, key); err != nil {
			log.Error().Err(err).Str("entry", entry.Name).Msg("Failed to extract zip member")
			result.Failed++
			continue
		}

		result.Keys = append(result.Keys, key)
		result.Succeeded++
	}

	if result.Succeeded == 0 {
		return nil, pipeline.NewValidationError(pipeline.ErrorNoValidFileToProcess, "zip contains no processable XML files")
	}

	log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Str("prefix", prefix).
		Msg("Fanned zip out to object storage")

	return result, nil
}

func uploadZipEntry(ctx context.Context, entry *zip.File, bucket string, key string) error {
	reader, err := entry.Open()
	if err != nil {
		return err
	}
	defer reader.Close()

	// Spool to disk first so the upload knows its size and the archive
	// is never held open across a slow PUT
	tempFile, err := os.CreateTemp("", "bodspipeline-extract-")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	size, err := io.Copy(tempFile, reader)
	if err != nil {
		return err
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return objectstore.Put(ctx, bucket, key, tempFile, size, "application/xml")
}

// CopySingleXML places a lone XML file under the same folder-shaped prefix
// a ZIP would get, because the downstream map stage lists a folder.
func CopySingleXML(ctx context.Context, filePath string, filename string, bucket string, prefix string) (*FanOutResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	key := path.Join(prefix, filename)

	if err := objectstore.Put(ctx, bucket, key, file, stat.Size(), "application/xml"); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}

	return &FanOutResult{Keys: []string{key}, Succeeded: 1}, nil
}
