package mapresults

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/objectstore"
	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog/log"
)

const archiveTimestampFormat = "20060102_150405"

// WriteProcessedArchive packages every successful file into one ZIP at
// `<outputPrefix>/processed_files_<timestamp>.zip`, entries keyed by
// basename. Returns the archive's object key.
func WriteProcessedArchive(ctx context.Context, bucket string, keys []string, outputPrefix string) (string, error) {
	tempFile, err := os.CreateTemp("", "bodspipeline-archive-")
	if err != nil {
		return "", err
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	zipWriter := zip.NewWriter(tempFile)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, key := range keys {
		object, err := objectstore.Get(ctx, bucket, key)
		if err != nil {
			zipWriter.Close()
			return "", fmt.Errorf("fetching %s: %w", key, err)
		}

		entry, err := zipWriter.Create(path.Base(key))
		if err != nil {
			object.Close()
			zipWriter.Close()
			return "", err
		}

		if _, err := io.Copy(entry, object); err != nil {
			object.Close()
			zipWriter.Close()
			return "", fmt.Errorf("archiving %s: %w", key, err)
		}

		object.Close()
	}

	if err := zipWriter.Close(); err != nil {
		return "", err
	}

	stat, err := tempFile.Stat()
	if err != nil {
		return "", err
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	archiveKey := path.Join(outputPrefix, fmt.Sprintf("processed_files_%s.zip", time.Now().Format(archiveTimestampFormat)))

	if err := objectstore.Put(ctx, bucket, archiveKey, tempFile, stat.Size(), "application/zip"); err != nil {
		return "", err
	}

	log.Info().
		Str("key", archiveKey).
		Int("files", len(keys)).
		Int64("bytes", stat.Size()).
		Msg("Wrote processed archive")

	return archiveKey, nil
}
