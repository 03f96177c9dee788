package ziparchive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
)

// ErrSealed is returned by Writer.Add after Seal has been called.
var ErrSealed = errors.New("ziparchive: archive is sealed")

// ErrDuplicateEntry is returned by Writer.Add when the name is already registered.
var ErrDuplicateEntry = errors.New("ziparchive: duplicate entry name")

// ErrFinalized is returned when Finalize is called more than once.
var ErrFinalized = errors.New("ziparchive: archive already finalized")

// ArchiveWriteError is returned by Finalize when the archive could not be
// written. Op is "read" when an entry source failed, "write" when the
// destination failed. Entry is empty for failures outside any entry, such as
// writing the central directory.
type ArchiveWriteError struct {
	Entry string
	Op    string
	Err   error
}

func (e *ArchiveWriteError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("ziparchive: %s archive: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ziparchive: %s entry %s: %v", e.Op, e.Entry, e.Err)
}

func (e *ArchiveWriteError) Unwrap() error { return e.Err }

// Options configures an archive.
type Options struct {
	// Level is the deflate compression level.
	// Default: flate.DefaultCompression
	Level int

	// BufferSize is the copy buffer used per entry. Only one buffer is in use
	// at a time regardless of how many entries are registered.
	// Default: 32KiB
	BufferSize int

	// Modified is stamped on every entry: the time of Begin.
	Modified time.Time
}

// Option is a functional option for configuring an archive.
type Option func(*Options)

// WithLevel sets the deflate compression level (flate.HuffmanOnly to flate.BestCompression).
func WithLevel(level int) Option {
	return func(o *Options) {
		o.Level = level
	}
}

// WithBufferSize sets the per-entry copy buffer size.
func WithBufferSize(n int) Option {
	return func(o *Options) {
		o.BufferSize = n
	}
}

type entry struct {
	name string
	r    io.Reader
}

// Writer composes a deflate-compressed zip archive from streams registered
// with Add. Registration and Finalize may run concurrently.
type Writer struct {
	opts Options

	mu        sync.Mutex
	pending   []entry
	names     map[string]struct{}
	sealed    bool
	finalized bool
	err       error
	notify    chan struct{}
}

// Begin starts a new archive.
func Begin(options ...Option) *Writer {
	opts := Options{
		Level:      flate.DefaultCompression,
		BufferSize: 32 * 1024,
		Modified:   time.Now(),
	}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 32 * 1024
	}

	return &Writer{
		opts:   opts,
		names:  make(map[string]struct{}),
		notify: make(chan struct{}, 1),
	}
}

// Add registers r to be stored under name. Add does not read r; Finalize
// reads it to EOF later. The archive never closes r.
func (w *Writer) Add(name string, r io.Reader) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if w.sealed {
		return ErrSealed
	}
	if _, ok := w.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}

	w.names[name] = struct{}{}
	w.pending = append(w.pending, entry{name: name, r: r})
	w.wake()
	return nil
}

// Seal declares that no more entries will be added. Finalize returns once
// every entry registered before Seal has been written.
func (w *Writer) Seal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sealed = true
	w.wake()
}

func (w *Writer) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// next blocks until an entry is pending or the archive is sealed and drained.
func (w *Writer) next(ctx context.Context) (entry, bool, error) {
	for {
		w.mu.Lock()
		if len(w.pending) > 0 {
			e := w.pending[0]
			w.pending[0] = entry{}
			w.pending = w.pending[1:]
			w.mu.Unlock()
			return e, true, nil
		}
		if w.sealed {
			w.mu.Unlock()
			return entry{}, false, nil
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return entry{}, false, ctx.Err()
		case <-w.notify:
		}
	}
}

// Finalize compresses every registered entry into dst, one at a time in
// registration order, and returns after the archive's central directory has
// been written. It waits for further entries until Seal is called.
//
// On failure the archive is marked failed: later calls to Add return the
// same error. Neither dst nor the entry readers are closed.
func (w *Writer) Finalize(ctx context.Context, dst io.Writer) error {
	w.mu.Lock()
	if w.finalized {
		w.mu.Unlock()
		return ErrFinalized
	}
	w.finalized = true
	w.mu.Unlock()

	if err := w.finalize(ctx, dst); err != nil {
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
		return err
	}
	return nil
}

func (w *Writer) finalize(ctx context.Context, dst io.Writer) error {
	out := &trackedWriter{w: dst}
	zw := zip.NewWriter(out)
	level := w.opts.Level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	buf := make([]byte, w.opts.BufferSize)
	for {
		e, ok, err := w.next(ctx)
		if err != nil {
			return &ArchiveWriteError{Op: "write", Err: err}
		}
		if !ok {
			break
		}
		if err := w.writeEntry(ctx, zw, out, e, buf); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return &ArchiveWriteError{Op: "write", Err: err}
	}
	return nil
}

func (w *Writer) writeEntry(ctx context.Context, zw *zip.Writer, out *trackedWriter, e entry, buf []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     e.name,
		Method:   zip.Deflate,
		Modified: w.opts.Modified,
	})
	if err != nil {
		return &ArchiveWriteError{Entry: e.name, Op: "write", Err: err}
	}

	src := &trackedReader{ctx: ctx, r: e.r}
	if _, err := io.CopyBuffer(fw, src, buf); err != nil {
		op := "write"
		if src.err != nil && out.err == nil {
			op = "read"
		}
		return &ArchiveWriteError{Entry: e.name, Op: op, Err: err}
	}
	return nil
}

// trackedReader remembers its own failure so Finalize can tell a broken
// source from a broken destination. It also stops on context cancellation.
type trackedReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	if err := t.ctx.Err(); err != nil {
		t.err = err
		return 0, err
	}
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

type trackedWriter struct {
	w   io.Writer
	err error
}

func (t *trackedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
