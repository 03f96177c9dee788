package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Options configures the progress reporter.
type Options struct {
	// TotalFetches is the number of (variant, format) fetches requested.
	TotalFetches int

	// Workers is the fetch concurrency limit (0 = unbounded, for display).
	Workers int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Archive is the archive key being built (for display).
	Archive string

	// Interactive redraws progress in place with carriage returns.
	// Default: true when Output is a terminal.
	Interactive *bool
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts        Options
	interactive bool

	mu            sync.Mutex
	storedBytes   atomic.Int64
	storedEntries atomic.Int32
	succeeded     atomic.Int32
	skipped       atomic.Int32
	inProgress    atomic.Int32
	startTime     time.Time
	lastUpdate    time.Time
	lastBytes     int64
	stopCh        chan struct{}
	doneCh        chan struct{}
	started       bool
	stopped       bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	interactive := false
	if opts.Interactive != nil {
		interactive = *opts.Interactive
	} else if f, ok := opts.Output.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &Reporter{
		opts:        opts,
		interactive: interactive,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.mu.Unlock()

	workers := "unbounded"
	if r.opts.Workers > 0 {
		workers = fmt.Sprintf("%d", r.opts.Workers)
	}
	fmt.Fprintf(r.opts.Output, "[fontpack] Building: %s\n", r.opts.Archive)
	fmt.Fprintf(r.opts.Output, "[fontpack] Fetches: %d | Workers: %s\n", r.opts.TotalFetches, workers)

	go r.updateLoop()
}

// Stop stops the progress reporter and prints the final status.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// FetchStarted marks a fetch as in progress.
func (r *Reporter) FetchStarted() {
	r.inProgress.Add(1)
}

// FetchSucceeded marks a fetch whose response was accepted.
func (r *Reporter) FetchSucceeded() {
	r.succeeded.Add(1)
	r.inProgress.Add(-1)
}

// FetchSkipped marks a fetch that was dropped after exhausting its retries.
func (r *Reporter) FetchSkipped() {
	r.skipped.Add(1)
	r.inProgress.Add(-1)
}

// EntryStored records an entry fully copied into the archive and the cache.
func (r *Reporter) EntryStored(size int64) {
	r.storedBytes.Add(size)
	r.storedEntries.Add(1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := time.Now()
	stored := r.storedBytes.Load()
	succeeded := int(r.succeeded.Load())
	skipped := int(r.skipped.Load())
	inProgress := int(r.inProgress.Load())

	// Calculate speed
	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(stored-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = stored

	pending := r.opts.TotalFetches - succeeded - skipped - inProgress
	if pending < 0 {
		pending = 0
	}

	line := fmt.Sprintf("[fontpack] Fetches: %d ok | %d skipped | %d in-progress | %d pending | Stored: %d entries, %s | Speed: %s/s",
		succeeded,
		skipped,
		inProgress,
		pending,
		r.storedEntries.Load(),
		FormatBytes(stored),
		FormatBytes(int64(speed)),
	)
	if r.interactive {
		fmt.Fprintf(r.opts.Output, "\r%s    ", line)
		return
	}
	fmt.Fprintln(r.opts.Output, line)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	stored := r.storedBytes.Load()
	duration := time.Since(r.startTime)

	if r.interactive {
		fmt.Fprintln(r.opts.Output)
	}
	fmt.Fprintf(r.opts.Output, "[fontpack] Fetches: %d ok | %d skipped | Stored: %d entries, %s\n",
		r.succeeded.Load(),
		r.skipped.Load(),
		r.storedEntries.Load(),
		FormatBytes(stored),
	)
	fmt.Fprintf(r.opts.Output, "[fontpack] Total time: %s\n", formatDuration(duration))
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes formats bytes as a human-readable IEC string ("1.5 KiB").
func FormatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// ParseBytes parses a human-readable byte string. IEC suffixes (KiB, MiB)
// are powers of 1024, SI suffixes (KB, MB) powers of 1000.
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	return int64(n), nil
}
