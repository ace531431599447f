package naptan

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/bodspipeline/bodspipeline/pkg/intake"
	"github.com/bodspipeline/bodspipeline/pkg/util"
)

const BatchSize = 25
const maxInFlightBatches = 10
const defaultMaxAge = 7 * 24 * time.Hour

// The full national export is far larger than a dataset revision.
const maxFeedSize = 2 << 30

const defaultSourceURL = "https://naptan.api.dft.gov.uk/v1/access-nodes?dataFormat=xml"

// Loader refreshes the stop-point cache from the national NaPTAN feed.
type Loader struct {
	Store      *Store
	Downloader *intake.Downloader

	SourceURL string
	WorkDir   string
	MaxAge    time.Duration
}

func NewLoader() *Loader {
	env := util.GetEnvironmentVariables()

	sourceURL := defaultSourceURL
	if env["BODSPIPE_NAPTAN_URL"] != "" {
		sourceURL = env["BODSPIPE_NAPTAN_URL"]
	}

	downloader := intake.NewDownloader()
	downloader.MaxSize = maxFeedSize

	return &Loader{
		Store:      NewStore(),
		Downloader: downloader,
		SourceURL:  sourceURL,
		WorkDir:    env["BODSPIPE_NAPTAN_WORKDIR"],
		MaxAge:     defaultMaxAge,
	}
}

type RefreshResult struct {
	Refreshed bool
	Processed int
	Errored   int
}

// Refresh re-downloads and re-loads the registry when the stored
// last-fetched timestamp is older than MaxAge. When the cache is still
// fresh it returns without touching the feed.
func (l *Loader) Refresh(ctx context.Context) (*RefreshResult, error) {
	lastFetched, err := l.Store.LastFetched(ctx)
	if err != nil {
		return nil, err
	}

	if !lastFetched.IsZero() && time.Since(lastFetched) < l.MaxAge {
		log.Info().Time("last_fetched", lastFetched).Msg("NaPTAN cache still fresh")
		return &RefreshResult{Refreshed: false}, nil
	}

	filePath, err := l.download(ctx)
	if err != nil {
		return nil, err
	}
	defer os.Remove(filePath)

	processed, errored, err := l.load(ctx, filePath)
	if err != nil {
		return nil, err
	}

	if err := l.Store.RecordFetched(ctx, time.Now()); err != nil {
		return nil, err
	}

	log.Info().Int("processed", processed).Int("errored", errored).Msg("NaPTAN cache refreshed")

	return &RefreshResult{Refreshed: true, Processed: processed, Errored: errored}, nil
}

// download prefers the configured work directory, falling back to the
// system temporary directory when it is unset or unwritable.
func (l *Loader) download(ctx context.Context) (string, error) {
	tempPath, err := l.Downloader.Download(ctx, l.SourceURL)
	if err != nil {
		return "", err
	}

	if l.WorkDir == "" {
		return tempPath, nil
	}

	target := filepath.Join(l.WorkDir, "naptan.xml")
	if err := os.Rename(tempPath, target); err != nil {
		log.Warn().Str("workdir", l.WorkDir).Err(err).Msg("Falling back to temporary directory")
		return tempPath, nil
	}

	return target, nil
}

// load streams the document and writes batches concurrently with a bounded
// fan-out. Cancellation stops submissions; in-flight batches drain before
// the counts come back.
func (l *Loader) load(ctx context.Context, filePath string) (int, int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	var writeFailed atomic.Int64

	writers := pool.New().WithMaxGoroutines(maxInFlightBatches)

	processed, errored, err := StreamStopPoints(file, BatchSize, func(batch []*StopPoint) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		writers.Go(func() {
			if err := l.Store.WriteBatch(ctx, batch); err != nil {
				log.Error().Int("batch_size", len(batch)).Err(err).Msg("Failed to write StopPoint batch")
				writeFailed.Add(int64(len(batch)))
			}
		})
		return nil
	})

	writers.Wait()

	if err != nil {
		return 0, 0, err
	}

	failed := int(writeFailed.Load())
	return processed - failed, errored + failed, nil
}
