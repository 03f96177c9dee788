// Package downloader fans font fetches out over goroutines.
//
// Every (variant, format) pair is one [Job]. [Run] starts all jobs at once, or
// at most Options.Workers at a time, and reports one [Result] per job on a
// channel. A job that fails after all of its retries is logged and reported
// with Err set; it never cancels or fails its siblings. Zero successful jobs
// is a normal outcome here; deciding what that means is up to the caller.
//
// # Streams
//
// A successful job yields a [Stream]. Reading it streams the HTTP response and
// writes the same bytes to the job's cache key:
//
//	{cache}/{font}-{version}-{subsets}-{variant}.{format}
//
// The cache object is committed when the response reaches EOF. Closing the
// stream earlier aborts the object instead, leaving nothing behind.
package downloader
