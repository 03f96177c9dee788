// Package progress provides progress reporting for archive builds.
//
// This package outputs human-readable progress information, redrawing a single
// line when writing to a terminal and printing plain lines otherwise.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    TotalFetches: 6,
//	    Archive:      "roboto-v30-latin.zip",
//	    Output:       os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.FetchStarted()
//	reporter.FetchSucceeded() // or FetchSkipped()
//	reporter.EntryStored(size)
//
// # Output Format
//
//	[fontpack] Building: roboto-v30-latin.zip
//	[fontpack] Fetches: 6 | Workers: unbounded
//	[fontpack] Fetches: 4 ok | 1 skipped | 1 in-progress | 0 pending | Stored: 3 entries, 96 KiB | Speed: 1.2 MiB/s
package progress
