package main

import (
	"bufio"
	"flag"
	"fmt"
	"strings"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/pipeline"
)

// runDelete removes an archive and the cached font files of its entries.
// By default prompts for confirmation unless -force is specified.
func runDelete(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cacheURL := fs.String("cache", "", "Cache bucket URL (required)")
	archive := fs.String("archive", "", "Archive key (required)")
	force := fs.Bool("force", false, "Skip confirmation prompt")

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: fontpack delete [options]

Remove an archive and the cached font files of all its entries.

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

	if !*force {
		fmt.Fprintf(stdout, "Delete archive %s and its font files from %s? [y/N]: ", *archive, *cacheURL)
		reader := bufio.NewReader(stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(stderr, "Cancelled")
			return ExitSuccess
		}
	}

	ctx, cancel := signalContext(false)
	defer cancel()

	c, err := cache.Open(ctx, *cacheURL)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening cache: %v\n", err)
		return ExitStorageError
	}
	defer c.Close()

	if err := pipeline.Delete(ctx, c, *archive); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Fprintf(stderr, "[fontpack] Deleted: %s\n", *archive)
	return ExitSuccess
}
