package downloader

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/logging"
	"github.com/ligustah/fontpack/internal/progress"
)

// Fetcher opens a validated response body for url whose content type
// contains format.
type Fetcher interface {
	Open(ctx context.Context, url, format string) (io.ReadCloser, error)
}

// Options configures the downloader.
type Options struct {
	// Workers caps the number of concurrent fetches. Zero means one goroutine
	// per job.
	Workers int

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	// Logger receives one warning per skipped fetch.
	Logger *zap.Logger
}

// Job is a single (variant, format) fetch.
type Job struct {
	Variant string
	Format  string
	URL     string

	// Key is the cache key the fetched bytes are stored under.
	Key string
}

// Result is the outcome of one Job. Exactly one of Stream and Err is set.
type Result struct {
	Job

	// Stream yields the asset bytes and stores them under Job.Key while being
	// read. The receiver owns it and must close it.
	Stream *Stream

	// Err is why the job was skipped.
	Err error
}

// Skipped reports whether the job failed.
func (r Result) Skipped() bool {
	return r.Err != nil
}

// Run fetches every job concurrently and delivers one Result per job on the
// returned channel, which is closed once all jobs have finished. A failed job
// never affects the others.
func Run(ctx context.Context, fetcher Fetcher, store cache.Store, jobs []Job, opts Options) <-chan Result {
	logger := logging.OrNop(opts.Logger).With(zap.String("component", "downloader"))

	// Buffered for every job so workers never wait on the receiver.
	results := make(chan Result, len(jobs))

	// A plain group: job failures must not cancel siblings, and the streams
	// outlive Run.
	var g errgroup.Group
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	go func() {
		defer close(results)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				results <- fetchJob(ctx, fetcher, store, job, opts.Progress, logger)
				return nil
			})
		}
		g.Wait()
	}()

	return results
}

// Collect drains results into successful and skipped jobs.
func Collect(results <-chan Result) (ok, skipped []Result) {
	for r := range results {
		if r.Skipped() {
			skipped = append(skipped, r)
			continue
		}
		ok = append(ok, r)
	}
	return ok, skipped
}

// fetchJob runs a single job.
func fetchJob(ctx context.Context, fetcher Fetcher, store cache.Store, job Job, reporter *progress.Reporter, logger *zap.Logger) Result {
	if reporter != nil {
		reporter.FetchStarted()
	}

	stream, err := open(ctx, fetcher, store, job, reporter)
	if err != nil {
		if reporter != nil {
			reporter.FetchSkipped()
		}
		logger.Warn("discarding format",
			zap.String("variant", job.Variant),
			zap.String("format", job.Format),
			zap.String("url", job.URL),
			zap.String("key", job.Key),
			zap.Error(err),
		)
		return Result{Job: job, Err: err}
	}

	if reporter != nil {
		reporter.FetchSucceeded()
	}
	logger.Debug("fetched format",
		zap.String("variant", job.Variant),
		zap.String("format", job.Format),
		zap.String("key", job.Key),
	)
	return Result{Job: job, Stream: stream}
}

func open(ctx context.Context, fetcher Fetcher, store cache.Store, job Job, reporter *progress.Reporter) (*Stream, error) {
	body, err := fetcher.Open(ctx, job.URL, job.Format)
	if err != nil {
		return nil, err
	}

	w, err := store.Create(ctx, job.Key)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("store %s: %w", job.Key, err)
	}

	return &Stream{body: body, dest: w, reporter: reporter}, nil
}
