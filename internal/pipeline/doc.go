// Package pipeline turns a resolved font request into a stored archive.
//
// A run flattens the request into one fetch per (variant, format) source and
// fetches all of them concurrently. Each successful response is streamed
// into two places at once: its intermediate file in the cache and an entry of
// the archive being composed. Entries are compressed in the order their
// fetches completed while later fetches are still running.
//
// Keys are derived from the request only, so repeated runs overwrite the same
// objects:
//
//	{prefix}/{font}-{version}-{first variant subsets}.zip
//	{prefix}/{font}-{version}-{subsets}-{variant}.{format}
//
// A format that fails after its retries is skipped and reported in
// Result.Skipped. The archive is only stored when at least one entry was
// fetched and every entry was written completely; otherwise every stream
// is closed, the partial archive is discarded and Run returns the error.
package pipeline
