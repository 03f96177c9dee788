package downloader

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/internal/progress"
)

// ErrStreamClosed is returned by Stream.Read after Close.
var ErrStreamClosed = errors.New("downloader: stream is closed")

// Stream is a fetched asset body. Every byte read from it is also written to
// its cache object, which is committed when the body reaches EOF. Closing the
// stream before EOF aborts the cache object, so a partially read asset never
// shows up in the cache.
type Stream struct {
	body     io.ReadCloser
	dest     cache.Writer
	reporter *progress.Reporter

	size   int64
	done   bool
	closed atomic.Bool
	once   sync.Once
	err    error
}

// Key returns the cache key the stream is stored under.
func (s *Stream) Key() string {
	return s.dest.Key()
}

// Size returns the number of bytes read so far.
func (s *Stream) Size() int64 {
	return s.size
}

// Read reads from the response body and copies the bytes into the cache.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrStreamClosed
	}
	if s.done {
		return 0, io.EOF
	}

	n, err := s.body.Read(p)
	if n > 0 {
		if _, werr := s.dest.Write(p[:n]); werr != nil {
			return n, fmt.Errorf("store %s: %w", s.dest.Key(), werr)
		}
		s.size += int64(n)
	}

	if err == io.EOF {
		if cerr := s.dest.Commit(); cerr != nil {
			return n, cerr
		}
		s.done = true
		if s.reporter != nil {
			s.reporter.EntryStored(s.size)
		}
	}
	return n, err
}

// Close releases the response body and aborts the cache object unless it was
// already committed. Safe to call multiple times.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		err := s.body.Close()
		if aerr := s.dest.Abort(); aerr != nil && err == nil {
			err = aerr
		}
		s.err = err
	})
	return s.err
}
