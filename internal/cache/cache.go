package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// ErrClosed is returned when writing to an object that was already
// committed or aborted.
var ErrClosed = errors.New("cache: object writer is closed")

// Writer streams one object into the cache. Nothing is visible under the key
// until Commit succeeds. Abort discards everything written so far; it is safe
// to call after Commit, in which case it does nothing.
type Writer interface {
	io.Writer
	Key() string
	Commit() error
	Abort() error
}

// Store creates cache objects.
type Store interface {
	Create(ctx context.Context, key string) (Writer, error)
}

// Cache is a font cache backed by a gocloud.dev bucket.
type Cache struct {
	bucket *blob.Bucket
	owned  bool
}

// Open opens the bucket at url (file://, mem://, s3://, gs://, ...). The
// matching driver must be registered by the caller with a blank import.
func Open(ctx context.Context, url string) (*Cache, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("cache: open bucket: %w", err)
	}
	return &Cache{bucket: bucket, owned: true}, nil
}

// New wraps an already open bucket. Close does not close it.
func New(bucket *blob.Bucket) *Cache {
	return &Cache{bucket: bucket}
}

// Close releases the bucket if it was opened by Open.
func (c *Cache) Close() error {
	if !c.owned {
		return nil
	}
	return c.bucket.Close()
}

// Create starts writing the object at key. Cancelling ctx aborts the write.
func (c *Cache) Create(ctx context.Context, key string) (Writer, error) {
	wctx, cancel := context.WithCancel(ctx)
	w, err := c.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: ContentType(key),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("cache: create %s: %w", key, err)
	}
	return &Object{key: key, writer: w, cancel: cancel}, nil
}

// Exists reports whether an object is stored at key.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := c.bucket.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("cache: stat %s: %w", key, err)
	}
	return ok, nil
}

// Size returns the stored size of the object at key.
func (c *Cache) Size(ctx context.Context, key string) (int64, error) {
	attrs, err := c.bucket.Attributes(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("cache: stat %s: %w", key, err)
	}
	return attrs.Size, nil
}

// ReadAll returns the contents of the object at key.
func (c *Cache) ReadAll(ctx context.Context, key string) ([]byte, error) {
	data, err := c.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", key, err)
	}
	return data, nil
}

// NewReader opens the object at key for streaming reads.
func (c *Cache) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := c.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", key, err)
	}
	return r, nil
}

// OpenAt returns random access to the object at key together with its size.
// Every ReadAt is a separate range read, so only the requested bytes are
// transferred.
func (c *Cache) OpenAt(ctx context.Context, key string) (io.ReaderAt, int64, error) {
	size, err := c.Size(ctx, key)
	if err != nil {
		return nil, 0, err
	}
	return &rangeReader{ctx: ctx, bucket: c.bucket, key: key}, size, nil
}

type rangeReader struct {
	ctx    context.Context
	bucket *blob.Bucket
	key    string
}

func (r *rangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	rr, err := r.bucket.NewRangeReader(r.ctx, r.key, off, int64(len(p)), nil)
	if err != nil {
		return 0, fmt.Errorf("cache: read %s at %d: %w", r.key, off, err)
	}
	defer rr.Close()

	n, err := io.ReadFull(rr, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// Delete removes the object at key. Missing objects are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.bucket.Delete(ctx, key); err != nil && !IsNotExist(err) {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	return nil
}

// IsNotExist reports whether err means the object does not exist.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

// Object is a Writer for a single cache object.
type Object struct {
	key string

	mu     sync.Mutex
	writer *blob.Writer
	cancel context.CancelFunc
	closed bool
}

// Key returns the object key.
func (o *Object) Key() string {
	return o.key
}

// Write writes data to the object.
func (o *Object) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, ErrClosed
	}

	return o.writer.Write(p)
}

// Commit closes the writer, persisting the object.
func (o *Object) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	o.closed = true
	defer o.cancel()

	if err := o.writer.Close(); err != nil {
		return fmt.Errorf("cache: commit %s: %w", o.key, err)
	}
	return nil
}

// Abort discards the write. Safe to call multiple times or after Commit.
func (o *Object) Abort() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	// Cancel the context first so Close discards instead of committing.
	o.cancel()
	if err := o.writer.Close(); err != nil && !isCanceled(err) {
		return fmt.Errorf("cache: abort %s: %w", o.key, err)
	}
	return nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || gcerrors.Code(err) == gcerrors.Canceled
}

var fontTypes = map[string]string{
	".woff2": "font/woff2",
	".woff":  "font/woff",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
	".svg":   "image/svg+xml",
	".zip":   "application/zip",
}

// ContentType guesses the stored content type from the key's extension.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := fontTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
