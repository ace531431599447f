package intake

import (
	"archive/zip"
	"strings"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
)

// VerifyZip checks a ZIP is safe to extract before any entry is opened:
// no nested ZIPs, and the declared uncompressed total within the cap.
func VerifyZip(path string, maxTotalSize uint64) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return pipeline.NewValidationError(pipeline.ErrorSuspiciousFile, "opening zip: %s", err)
	}
	defer reader.Close()

	return verifyZipEntries(&reader.Reader, maxTotalSize)
}

func verifyZipEntries(reader *zip.Reader, maxTotalSize uint64) error {
	var totalSize uint64

	for _, entry := range reader.File {
		if strings.HasSuffix(strings.ToLower(entry.Name), ".zip") {
			return pipeline.NewValidationError(pipeline.ErrorNestedZipForbidden, "zip contains nested zip %s", entry.Name)
		}

		totalSize += entry.UncompressedSize64
	}

	if totalSize > maxTotalSize {
		return pipeline.NewValidationError(pipeline.ErrorZipTooLarge, "zip declares %d uncompressed bytes, cap is %d", totalSize, maxTotalSize)
	}

	return nil
}
