package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/catalog"
	"github.com/ligustah/fontpack/internal/downloader"
	"github.com/ligustah/fontpack/internal/logging"
	"github.com/ligustah/fontpack/internal/progress"
	"github.com/ligustah/fontpack/pkg/ziparchive"
)

// ErrNoAssets is returned when none of the requested formats could be
// fetched. No archive is stored in that case.
var ErrNoAssets = errors.New("pipeline: no font asset could be fetched")

// Options configures a Pipeline.
type Options struct {
	// Prefix is prepended to every cache key, e.g. "fonts".
	Prefix string

	// Workers caps concurrent fetches. Zero means unbounded.
	Workers int

	// Level is the deflate level. Zero keeps the library default.
	Level int

	// CopyBuffer is the size of the buffer used to copy entries into the
	// archive.
	// Default: 32KiB
	CopyBuffer int

	// Progress is an optional progress reporter.
	Progress *progress.Reporter

	Logger *zap.Logger
}

// FetchedEntry is one asset stored in the archive and in the cache.
type FetchedEntry struct {
	Variant string
	Format  string

	// Path is the cache key of the intermediate file.
	Path string

	// Size is the number of bytes stored.
	Size int64
}

// Result describes a stored archive.
type Result struct {
	RunID string

	// Path is the cache key of the archive.
	Path string

	// Entries lists every asset in the archive, in archive order.
	Entries []FetchedEntry

	// Skipped lists the fetches that were discarded.
	Skipped []downloader.Result
}

// Pipeline builds font archives.
type Pipeline struct {
	fetcher downloader.Fetcher
	store   cache.Store
	opts    Options
	logger  *zap.Logger
}

// New creates a pipeline that fetches with fetcher and stores intermediates
// and archives in store.
func New(fetcher downloader.Fetcher, store cache.Store, opts Options) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		logger:  logging.OrNop(opts.Logger).With(zap.String("component", "pipeline")),
	}
}

// Run fetches every source of req concurrently, stores each successful
// fetch as an intermediate file and packs all of them into one deflate
// archive. Formats that cannot be fetched are skipped; if nothing could be
// fetched Run returns ErrNoAssets.
//
// On any error every stream opened by the run is closed and the partial
// archive is discarded before Run returns.
func (p *Pipeline) Run(ctx context.Context, req catalog.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	archiveKey := ArchivePath(p.opts.Prefix, req)
	jobs := Jobs(req, p.opts.Prefix)

	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("font", req.FontID),
		zap.String("version", req.Version),
	)
	logger.Debug("building archive", zap.String("archive", archiveKey), zap.Int("fetches", len(jobs)))

	open := newStreamSet(logger)
	defer open.closeAll()

	out, err := p.store.Create(ctx, archiveKey)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open archive: %w", err)
	}
	open.track(archiveKey, abortOnClose{out})

	arc := ziparchive.Begin(p.archiveOptions()...)

	var (
		entries []FetchedEntry
		streams []*downloader.Stream
		skipped []downloader.Result
	)

	// An archive failure cancels gctx, which stops the remaining fetches.
	g, gctx := errgroup.WithContext(ctx)

	results := downloader.Run(gctx, p.fetcher, p.store, jobs, downloader.Options{
		Workers:  p.opts.Workers,
		Progress: p.opts.Progress,
		Logger:   logger,
	})

	g.Go(func() error {
		defer arc.Seal()
		for r := range results {
			if r.Skipped() {
				skipped = append(skipped, r)
				continue
			}

			open.track(r.Key, r.Stream)
			if err := arc.Add(path.Base(r.Key), r.Stream); err != nil {
				logger.Warn("entry not added", zap.String("key", r.Key), zap.Error(err))
				continue
			}
			entries = append(entries, FetchedEntry{
				Variant: r.Variant,
				Format:  r.Format,
				Path:    r.Key,
			})
			streams = append(streams, r.Stream)
		}
		return nil
	})

	g.Go(func() error {
		return arc.Finalize(gctx, out)
	})

	if err := g.Wait(); err != nil {
		logger.Error("archive failed", zap.String("archive", archiveKey), zap.Error(err))
		return nil, fmt.Errorf("pipeline: build %s: %w", archiveKey, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Finalize read every stream to EOF.
	for i, s := range streams {
		entries[i].Size = s.Size()
	}

	if len(entries) == 0 {
		logger.Warn("no assets fetched", zap.String("archive", archiveKey), zap.Int("skipped", len(skipped)))
		return nil, fmt.Errorf("%w: %d of %d fetches failed", ErrNoAssets, len(skipped), len(jobs))
	}

	if err := out.Commit(); err != nil {
		return nil, fmt.Errorf("pipeline: store %s: %w", archiveKey, err)
	}

	logger.Info("archive stored",
		zap.String("archive", archiveKey),
		zap.Int("entries", len(entries)),
		zap.Int("skipped", len(skipped)),
	)

	return &Result{
		RunID:   runID,
		Path:    archiveKey,
		Entries: entries,
		Skipped: skipped,
	}, nil
}

func (p *Pipeline) archiveOptions() []ziparchive.Option {
	var opts []ziparchive.Option
	if p.opts.Level != 0 {
		opts = append(opts, ziparchive.WithLevel(p.opts.Level))
	}
	if p.opts.CopyBuffer > 0 {
		opts = append(opts, ziparchive.WithBufferSize(p.opts.CopyBuffer))
	}
	return opts
}
