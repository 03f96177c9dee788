// Package cache stores fetched font files and archives in object storage.
//
// Storage is accessed through gocloud.dev/blob, so the cache can live on local
// disk (file://), in memory (mem://, for tests) or in S3/GCS buckets. Callers
// register the drivers they need with blank imports.
//
// Objects are written through a Writer: bytes become visible under the key
// only after Commit. Abort cancels the upload so an interrupted write never
// leaves a partial object behind.
package cache
