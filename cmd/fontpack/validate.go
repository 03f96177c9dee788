package main

import (
	"flag"
	"fmt"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/pipeline"
	"github.com/ligustah/fontpack/internal/progress"
	"github.com/ligustah/fontpack/pkg/ziparchive"
)

// runValidate checks that every entry of a stored archive has a cached font
// file with the same size and checksum.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cacheURL := fs.String("cache", "", "Cache bucket URL (required)")
	archive := fs.String("archive", "", "Archive key, e.g. fonts/roboto-v30-latin.zip (required)")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: fontpack validate [options]

Verify that every entry of an archive has a matching cached font file.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *cacheURL == "" || *archive == "" {
		fmt.Fprintln(stderr, "Error: -cache and -archive are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext(false)
	defer cancel()

	c, err := cache.Open(ctx, *cacheURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cache: %v\n", err)
		return ExitStorageError
	}
	defer c.Close()

	result, err := pipeline.Validate(ctx, c, *archive)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	rows := make([][]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		rows = append(rows, []string{
			e.Name,
			ziparchive.MethodName(e.Method),
			progress.FormatBytes(e.Size),
			progress.FormatBytes(e.CompressedSize),
			fmt.Sprintf("%08x", e.CRC32),
			e.Status,
		})
	}

	fmt.Fprintf(stdout, "Archive: %s\n", *archive)
	fmt.Fprintf(stdout, "Size: %s\n", progress.FormatBytes(result.ArchiveSize))
	fmt.Fprintf(stdout, "Entries: %d\n", len(result.Entries))
	fmt.Fprintln(stdout, renderTable(
		[]string{"Entry", "Method", "Size", "Compressed", "CRC-32", "Cached"},
		rows, 2, 3,
	))

	if result.Valid {
		fmt.Fprintln(stdout, "Status: VALID")
		return ExitSuccess
	}

	fmt.Fprintln(stdout, "Status: INVALID")
	fmt.Fprintf(stdout, "Missing: %d\n", result.MissingEntries)
	fmt.Fprintf(stdout, "Size mismatches: %d\n", result.SizeMismatches)
	fmt.Fprintf(stdout, "Checksum mismatches: %d\n", result.ChecksumMismatches)

	if len(result.Errors) > 0 {
		fmt.Fprintln(stdout, "\nErrors:")
		for _, e := range result.Errors {
			fmt.Fprintf(stdout, "  - %s\n", e)
		}
	}

	return ExitValidationFailed
}
