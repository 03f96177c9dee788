package ziparchive

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// EntryInfo describes one entry of an existing archive.
type EntryInfo struct {
	Name           string
	Method         uint16
	CRC32          uint32
	Size           int64
	CompressedSize int64
	Modified       time.Time
}

// List reads the central directory of the archive in r.
func List(r io.ReaderAt, size int64) ([]EntryInfo, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("ziparchive: read archive: %w", err)
	}

	entries := make([]EntryInfo, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, EntryInfo{
			Name:           f.Name,
			Method:         f.Method,
			CRC32:          f.CRC32,
			Size:           int64(f.UncompressedSize64),
			CompressedSize: int64(f.CompressedSize64),
			Modified:       f.Modified,
		})
	}
	return entries, nil
}

// MethodName returns a readable name for a zip compression method.
func MethodName(method uint16) string {
	switch method {
	case zip.Store:
		return "store"
	case zip.Deflate:
		return "deflate"
	default:
		return fmt.Sprintf("method-%d", method)
	}
}
