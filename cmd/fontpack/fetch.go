package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/catalog"
	"github.com/ligustah/fontpack/internal/config"
	fonthttp "github.com/ligustah/fontpack/internal/http"
	"github.com/ligustah/fontpack/internal/logging"
	"github.com/ligustah/fontpack/internal/pipeline"
	"github.com/ligustah/fontpack/internal/progress"
	"github.com/ligustah/fontpack/pkg/ziparchive"
)

// runFetch fetches every source of a font request concurrently, caches each
// font file and stores all of them as one zip archive.
func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	requestFile := fs.String("request", "", "Font request file, YAML or JSON (required)")
	configFile := fs.String("config", "", "Configuration file, YAML or TOML")
	cacheURL := fs.String("cache", "", "Cache bucket URL, e.g. file:///var/cache/fonts")
	prefix := fs.String("prefix", "", "Key prefix inside the cache bucket")
	workers := fs.Int("workers", 0, "Max concurrent fetches (default unbounded)")
	timeout := fs.Duration("timeout", 0, "Per-attempt timeout until response headers (default 30s)")
	copyBuffer := fs.String("copy-buffer", "", "Archive copy buffer size (default 32KiB)")
	level := fs.Int("level", 0, "Deflate level, 1-9 (default library default)")
	showProgress := fs.Bool("progress", false, "Show progress output")
	retryAttempts := fs.Int("retry-attempts", 0, "Max attempts per fetch (default 5)")
	retryBackoff := fs.Duration("retry-backoff", 0, "Initial retry backoff (default 1s)")
	retryMaxBackoff := fs.Duration("retry-max-backoff", 0, "Max retry backoff (default 30s)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: console or json")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: fontpack fetch [options]

Fetch every (variant, format) source of a font request, cache each font file
and store all of them as one deflate zip archive. Formats that cannot be
fetched are skipped.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *requestFile == "" {
		fmt.Fprintln(stderr, "Error: -request is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.LoadFromFile(*configFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	flags := config.Config{
		Cache:    *cacheURL,
		Prefix:   *prefix,
		Workers:  *workers,
		Timeout:  *timeout,
		Level:    *level,
		Progress: *showProgress,
		Retry: config.RetryConfig{
			Attempts:   *retryAttempts,
			Backoff:    *retryBackoff,
			MaxBackoff: *retryMaxBackoff,
		},
		Log: config.LogConfig{Level: *logLevel, Format: *logFormat},
	}
	if *copyBuffer != "" {
		size, err := progress.ParseBytes(*copyBuffer)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid copy buffer size: %v\n", err)
			return ExitInvalidArgs
		}
		flags.CopyBuffer = size
	}
	cfg = cfg.Merge(flags)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer logger.Sync()

	req, err := catalog.Load(*requestFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext(true)
	defer cancel()

	c, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cache: %v\n", err)
		return ExitStorageError
	}
	defer c.Close()

	client := fonthttp.NewClient(fonthttp.Options{
		Timeout:         cfg.Timeout,
		RetryAttempts:   cfg.Retry.Attempts,
		RetryBackoff:    cfg.Retry.Backoff,
		RetryMaxBackoff: cfg.Retry.MaxBackoff,
	})

	opts := pipeline.Options{
		Prefix:     cfg.Prefix,
		Workers:    cfg.Workers,
		Level:      cfg.Level,
		CopyBuffer: int(cfg.CopyBuffer),
		Logger:     logger,
	}
	if cfg.Progress {
		opts.Progress = progress.NewReporter(progress.Options{
			TotalFetches:   req.Jobs(),
			Workers:        cfg.Workers,
			UpdateInterval: time.Second,
			Archive:        pipeline.ArchivePath(cfg.Prefix, req),
			Output:         stderr,
		})
		opts.Progress.Start()
	}

	result, err := pipeline.New(client, c, opts).Run(ctx, req)
	if opts.Progress != nil {
		opts.Progress.Stop()
	}
	if err != nil {
		return fetchExitCode(ctx.Err(), err)
	}

	rows := make([][]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		rows = append(rows, []string{e.Variant, e.Format, progress.FormatBytes(e.Size), e.Path})
	}
	fmt.Fprintln(stdout, renderTable([]string{"Variant", "Format", "Size", "Cached"}, rows, 2))

	fmt.Fprintf(stderr, "[fontpack] Archive stored: %s (%d entries, %d skipped)\n",
		result.Path, len(result.Entries), len(result.Skipped))

	return ExitSuccess
}

func fetchExitCode(interrupted error, err error) int {
	var werr *ziparchive.ArchiveWriteError
	switch {
	case interrupted != nil:
		fmt.Fprintln(stderr, "[fontpack] Fetch interrupted, nothing stored")
		return ExitInterrupted
	case errors.Is(err, pipeline.ErrNoAssets):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitNoAssets
	case errors.As(err, &werr):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitArchiveFailed
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}
}
