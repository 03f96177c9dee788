package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/ligustah/fontpack/internal/cache"
)

// CleanupError reports a resource that could not be released. It is logged,
// never returned from Run.
type CleanupError struct {
	Resource string
	Err      error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("release %s: %v", e.Resource, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

type resource struct {
	name string
	c    io.Closer
}

// streamSet holds every stream and the destination opened during one run so
// they can all be released on any exit path.
type streamSet struct {
	logger *zap.Logger

	mu        sync.Mutex
	resources []resource
	released  bool
}

func newStreamSet(logger *zap.Logger) *streamSet {
	return &streamSet{logger: logger}
}

// track adds c to the set. If the set was already released c is closed
// immediately.
func (s *streamSet) track(name string, c io.Closer) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		s.release(resource{name: name, c: c})
		return
	}
	s.resources = append(s.resources, resource{name: name, c: c})
	s.mu.Unlock()
}

func (s *streamSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// closeAll releases every tracked resource. Failures are logged and returned
// joined; later calls do nothing.
func (s *streamSet) closeAll() error {
	s.mu.Lock()
	resources := s.resources
	s.resources = nil
	s.released = true
	s.mu.Unlock()

	var errs []error
	for _, r := range resources {
		if err := s.release(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *streamSet) release(r resource) error {
	err := r.c.Close()
	if err == nil {
		return nil
	}
	cerr := &CleanupError{Resource: r.name, Err: err}
	s.logger.Warn("releasing resource failed", zap.String("resource", r.name), zap.Error(cerr))
	return cerr
}

// abortOnClose releases a destination object. Closing a committed object
// does nothing.
type abortOnClose struct {
	cache.Writer
}

func (a abortOnClose) Close() error {
	return a.Abort()
}
