package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{-5, "0 B"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KiB", 1024},
		{"1.5KiB", 1536},
		{"32KiB", 32 * 1024},
		{"1MiB", 1024 * 1024},
		// SI units
		{"1KB", 1000},
		{"1MB", 1000 * 1000},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	_, err := ParseBytes("invalid")
	if err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestReporterFetchTracking(t *testing.T) {
	reporter := NewReporter(Options{
		TotalFetches:   4,
		UpdateInterval: 100 * time.Millisecond,
		Output:         &bytes.Buffer{},
	})

	// Test tracking without starting the reporter
	reporter.FetchStarted()
	if reporter.inProgress.Load() != 1 {
		t.Errorf("expected 1 in-progress, got %d", reporter.inProgress.Load())
	}

	reporter.FetchSucceeded()
	reporter.EntryStored(256)
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress after success, got %d", reporter.inProgress.Load())
	}
	if reporter.succeeded.Load() != 1 {
		t.Errorf("expected 1 succeeded, got %d", reporter.succeeded.Load())
	}
	if reporter.storedBytes.Load() != 256 {
		t.Errorf("expected 256 bytes, got %d", reporter.storedBytes.Load())
	}

	reporter.FetchStarted()
	reporter.FetchSkipped()
	if reporter.inProgress.Load() != 0 {
		t.Errorf("expected 0 in-progress after skip, got %d", reporter.inProgress.Load())
	}
	if reporter.skipped.Load() != 1 {
		t.Errorf("expected 1 skipped, got %d", reporter.skipped.Load())
	}

	// Stop without Start is a no-op.
	reporter.Stop()
}

func TestReporterStartStop(t *testing.T) {
	var out bytes.Buffer
	interactive := false
	reporter := NewReporter(Options{
		TotalFetches:   2,
		Workers:        2,
		UpdateInterval: 10 * time.Millisecond,
		Archive:        "roboto-v30-latin.zip",
		Output:         &out,
		Interactive:    &interactive,
	})

	reporter.Start()

	reporter.FetchStarted()
	reporter.FetchSucceeded()
	reporter.EntryStored(1024)

	reporter.FetchStarted()
	reporter.FetchSkipped()

	time.Sleep(50 * time.Millisecond) // Let updates run

	reporter.Stop()
	reporter.Stop()

	text := out.String()
	if !strings.Contains(text, "[fontpack] Building: roboto-v30-latin.zip") {
		t.Errorf("missing header in %q", text)
	}
	if !strings.Contains(text, "1 ok | 1 skipped | Stored: 1 entries, 1.0 KiB") {
		t.Errorf("missing final status in %q", text)
	}
	if strings.Contains(text, "\r") {
		t.Errorf("non-interactive output should not redraw: %q", text)
	}
}
