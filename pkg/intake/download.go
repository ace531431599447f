// Package intake acquires a revision's artifact and gets it into object
// storage: download, fingerprint, virus scan, ZIP verification, fan-out.
package intake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/pipeline"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const DefaultMaxDownloadSize = 200 << 20 // 200 MB
const DefaultMaxUploadSize = 400 << 20   // 400 MB

const downloadTimeout = 60 * time.Second
const maxDownloadRetries = 3

type Downloader struct {
	Client  *http.Client
	MaxSize int64
}

func NewDownloader() *Downloader {
	return &Downloader{
		Client:  &http.Client{Timeout: downloadTimeout},
		MaxSize: DefaultMaxDownloadSize,
	}
}

// Download streams the remote URL to a temporary file, retrying transient
// upstream failures. The caller owns the returned path.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	var filePath string

	retryBackoff := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDownloadRetries)

	operation := func() error {
		path, err := d.downloadOnce(ctx, url)
		if err != nil {
			var pipelineError *pipeline.Error
			if errors.As(err, &pipelineError) && pipelineError.Kind == pipeline.ErrorDownloadProxy {
				return err // transient, retry
			}
			return backoff.Permanent(err)
		}

		filePath = path
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(retryBackoff, ctx)); err != nil {
		return "", err
	}

	return filePath, nil
}

func (d *Downloader) downloadOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", pipeline.NewValidationError(pipeline.ErrorDownloadOther, "building request: %s", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		var netError net.Error
		if errors.As(err, &netError) && netError.Timeout() {
			return "", pipeline.NewInfrastructureError(pipeline.ErrorDownloadTimeout, err, "download timed out")
		}
		return "", pipeline.NewInfrastructureError(pipeline.ErrorDownloadOther, err, "download failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden:
		return "", pipeline.NewValidationError(pipeline.ErrorDownloadPermission, "remote returned 403")
	case resp.StatusCode == http.StatusNotFound:
		return "", pipeline.NewValidationError(pipeline.ErrorDownloadNotFound, "remote returned 404")
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return "", pipeline.NewInfrastructureError(pipeline.ErrorDownloadProxy, nil, "remote returned %d", resp.StatusCode)
	default:
		return "", pipeline.NewValidationError(pipeline.ErrorDownloadOther, "remote returned %d", resp.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "bodspipeline-download-")
	if err != nil {
		return "", err
	}

	head := make([]byte, 512)
	headLength, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", pipeline.NewInfrastructureError(pipeline.ErrorDownloadOther, err, "reading response")
	}
	head = head[:headLength]

	if !acceptableFiletype(resp.Header.Get("Content-Type"), head) {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", pipeline.NewValidationError(pipeline.ErrorDownloadUnknownFiletype, "content type %q is neither XML nor ZIP", resp.Header.Get("Content-Type"))
	}

	written, err := io.Copy(tempFile, io.MultiReader(bytes.NewReader(head), io.LimitReader(resp.Body, d.MaxSize+1)))
	if err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", pipeline.NewInfrastructureError(pipeline.ErrorDownloadOther, err, "streaming response")
	}

	if written > d.MaxSize {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", pipeline.NewValidationError(pipeline.ErrorFileTooLarge, "download exceeds %d bytes", d.MaxSize)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempFile.Name())
		return "", err
	}

	log.Info().Str("url", url).Int64("bytes", written).Msg("Downloaded artifact")

	return tempFile.Name(), nil
}

// acceptableFiletype accepts an XML or ZIP content type, falling back to
// content sniffing when the header is absent or generic.
func acceptableFiletype(contentType string, head []byte) bool {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch contentType {
	case "application/xml", "text/xml", "application/zip", "application/x-zip-compressed":
		return true
	}

	sniffed := http.DetectContentType(head)
	if strings.HasPrefix(sniffed, "text/xml") || strings.HasPrefix(sniffed, "application/zip") {
		return true
	}

	// DetectContentType calls bare XML without a declaration text/plain
	trimmed := strings.TrimLeftFunc(string(head), func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' })
	return strings.HasPrefix(trimmed, "<")
}
