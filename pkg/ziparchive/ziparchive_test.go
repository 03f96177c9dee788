package ziparchive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	files := make(map[string]string)
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Errorf("entry %s: expected deflate, got method %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		files[f.Name] = string(b)
	}
	return files
}

func TestFinalize(t *testing.T) {
	arc := Begin()
	if err := arc.Add("roboto-regular.woff2", strings.NewReader("woff2 bytes")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := arc.Add("roboto-regular.ttf", strings.NewReader(strings.Repeat("ttf", 1000))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	arc.Seal()

	var buf bytes.Buffer
	if err := arc.Finalize(context.Background(), &buf); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	files := readArchive(t, buf.Bytes())
	if len(files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(files))
	}
	if files["roboto-regular.woff2"] != "woff2 bytes" {
		t.Errorf("unexpected woff2 content %q", files["roboto-regular.woff2"])
	}
	if files["roboto-regular.ttf"] != strings.Repeat("ttf", 1000) {
		t.Error("unexpected ttf content")
	}
}

func TestFinalizeEmpty(t *testing.T) {
	arc := Begin()
	arc.Seal()

	var buf bytes.Buffer
	if err := arc.Finalize(context.Background(), &buf); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if files := readArchive(t, buf.Bytes()); len(files) != 0 {
		t.Errorf("expected empty archive, got %d entries", len(files))
	}
}

func TestAddDuringFinalize(t *testing.T) {
	arc := Begin()

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- arc.Finalize(context.Background(), &buf)
	}()

	// The first entry is read while the second is still being registered.
	pr, pw := io.Pipe()
	if err := arc.Add("slow.woff2", pr); err != nil {
		t.Fatalf("Add: %v", err)
	}
	go func() {
		pw.Write([]byte("slow "))
		time.Sleep(10 * time.Millisecond)
		pw.Write([]byte("bytes"))
		pw.Close()
	}()

	time.Sleep(5 * time.Millisecond)
	if err := arc.Add("fast.woff", strings.NewReader("fast")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	select {
	case err := <-done:
		t.Fatalf("Finalize returned before Seal: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	arc.Seal()
	if err := <-done; err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	files := readArchive(t, buf.Bytes())
	if files["slow.woff2"] != "slow bytes" || files["fast.woff"] != "fast" {
		t.Errorf("unexpected archive contents: %v", files)
	}

	entries, err := List(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "slow.woff2" || entries[1].Name != "fast.woff" {
		t.Errorf("expected registration order, got %+v", entries)
	}
}

func TestAddRejections(t *testing.T) {
	arc := Begin()
	if err := arc.Add("a.woff2", strings.NewReader("a")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := arc.Add("a.woff2", strings.NewReader("b")); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}
	arc.Seal()
	if err := arc.Add("b.woff2", strings.NewReader("b")); !errors.Is(err, ErrSealed) {
		t.Errorf("expected ErrSealed, got %v", err)
	}
}

type failingWriter struct {
	after   int
	written int
}

var errDiskFull = errors.New("disk full")

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.written+len(p) > f.after {
		n := f.after - f.written
		f.written = f.after
		return n, errDiskFull
	}
	f.written += len(p)
	return len(p), nil
}

func TestFinalizeDestinationFailure(t *testing.T) {
	arc := Begin(WithBufferSize(1024))
	big := bytes.Repeat([]byte{0x5a, 0x13, 0x77, 0x02}, 64*1024)
	arc.Add("big.ttf", bytes.NewReader(big))
	arc.Seal()

	err := arc.Finalize(context.Background(), &failingWriter{after: 100})

	var writeErr *ArchiveWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *ArchiveWriteError, got %v", err)
	}
	if writeErr.Op != "write" {
		t.Errorf("expected write op, got %s", writeErr.Op)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("expected disk full cause, got %v", err)
	}

	// A failed archive refuses new work with the same error.
	if err := arc.Add("late.woff", strings.NewReader("x")); !errors.As(err, &writeErr) {
		t.Errorf("expected Add to report the failure, got %v", err)
	}
}

type brokenReader struct{}

var errReset = errors.New("connection reset")

func (brokenReader) Read(p []byte) (int, error) { return 0, errReset }

func TestFinalizeSourceFailure(t *testing.T) {
	arc := Begin()
	arc.Add("ok.woff", strings.NewReader("fine"))
	arc.Add("broken.woff2", brokenReader{})
	arc.Seal()

	err := arc.Finalize(context.Background(), io.Discard)

	var writeErr *ArchiveWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *ArchiveWriteError, got %v", err)
	}
	if writeErr.Op != "read" || writeErr.Entry != "broken.woff2" {
		t.Errorf("expected read failure on broken.woff2, got %s on %s", writeErr.Op, writeErr.Entry)
	}
	if !errors.Is(err, errReset) {
		t.Errorf("expected reset cause, got %v", err)
	}
}

func TestFinalizeCancelledWhileWaiting(t *testing.T) {
	arc := Begin()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- arc.Finalize(ctx, io.Discard) }()

	cancel()
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFinalizeTwice(t *testing.T) {
	arc := Begin()
	arc.Seal()
	if err := arc.Finalize(context.Background(), io.Discard); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := arc.Finalize(context.Background(), io.Discard); !errors.Is(err, ErrFinalized) {
		t.Errorf("expected ErrFinalized, got %v", err)
	}
}

func TestMethodName(t *testing.T) {
	if MethodName(zip.Deflate) != "deflate" || MethodName(zip.Store) != "store" {
		t.Error("unexpected method names")
	}
}
