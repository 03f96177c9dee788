package pipeline

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/ligustah/fontpack/internal/cache"
	"github.com/ligustah/fontpack/pkg/ziparchive"
)

// Entry states reported by Validate.
const (
	StatusOK               = "ok"
	StatusMissing          = "missing"
	StatusSizeMismatch     = "size mismatch"
	StatusChecksumMismatch = "checksum mismatch"
)

// EntryStatus is the validation outcome of one archive entry.
type EntryStatus struct {
	ziparchive.EntryInfo

	// Key is the cache key of the matching intermediate file.
	Key    string
	Status string
}

// ValidationResult contains the results of validating a stored archive.
type ValidationResult struct {
	Valid              bool  // true if every entry has a matching intermediate file
	ArchiveSize        int64 // stored size of the archive
	Entries            []EntryStatus
	MissingEntries     int
	SizeMismatches     int
	ChecksumMismatches int
	Errors             []string
}

// Validate checks that every entry of the archive at archiveKey has an
// intermediate file next to it with the same size and CRC-32.
//
// Returns an error if the archive cannot be read or is not a zip file, or
// the cache cannot be reached. Missing or mismatched intermediates are NOT
// errors; they are reported in the ValidationResult with Valid=false.
func Validate(ctx context.Context, c *cache.Cache, archiveKey string) (*ValidationResult, error) {
	infos, size, err := listArchive(ctx, c, archiveKey)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Valid:       true,
		ArchiveSize: size,
		Entries:     make([]EntryStatus, 0, len(infos)),
		Errors:      make([]string, 0),
	}

	for _, info := range infos {
		key := IntermediateKey(archiveKey, info.Name)
		status, err := checkIntermediate(ctx, c, key, info)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, EntryStatus{EntryInfo: info, Key: key, Status: status})

		switch status {
		case StatusOK:
			continue
		case StatusMissing:
			result.MissingEntries++
			result.Errors = append(result.Errors, fmt.Sprintf("%s missing: %s", info.Name, key))
		case StatusSizeMismatch:
			result.SizeMismatches++
			result.Errors = append(result.Errors, fmt.Sprintf("%s size mismatch: archive has %d bytes", info.Name, info.Size))
		case StatusChecksumMismatch:
			result.ChecksumMismatches++
			result.Errors = append(result.Errors, fmt.Sprintf("%s checksum mismatch: archive has %08x", info.Name, info.CRC32))
		}
		result.Valid = false
	}

	return result, nil
}

func checkIntermediate(ctx context.Context, c *cache.Cache, key string, info ziparchive.EntryInfo) (string, error) {
	size, err := c.Size(ctx, key)
	if err != nil {
		if cache.IsNotExist(err) {
			return StatusMissing, nil
		}
		return "", fmt.Errorf("pipeline: check %s: %w", key, err)
	}
	if size != info.Size {
		return StatusSizeMismatch, nil
	}

	r, err := c.NewReader(ctx, key)
	if err != nil {
		return "", fmt.Errorf("pipeline: check %s: %w", key, err)
	}
	defer r.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("pipeline: check %s: %w", key, err)
	}
	if h.Sum32() != info.CRC32 {
		return StatusChecksumMismatch, nil
	}
	return StatusOK, nil
}

// listArchive reads the archive's central directory without downloading the
// entries.
func listArchive(ctx context.Context, c *cache.Cache, archiveKey string) ([]ziparchive.EntryInfo, int64, error) {
	r, size, err := c.OpenAt(ctx, archiveKey)
	if err != nil {
		return nil, 0, fmt.Errorf("pipeline: read archive: %w", err)
	}
	infos, err := ziparchive.List(r, size)
	if err != nil {
		return nil, 0, fmt.Errorf("pipeline: %s: %w", archiveKey, err)
	}
	return infos, size, nil
}

// Delete removes an archive and the intermediate files of all its entries.
// Intermediates that are already gone are ignored.
//
// Returns an error if the archive cannot be read, is not a zip file, or an
// object cannot be deleted.
func Delete(ctx context.Context, c *cache.Cache, archiveKey string) error {
	infos, _, err := listArchive(ctx, c, archiveKey)
	if err != nil {
		return err
	}

	for _, info := range infos {
		key := IntermediateKey(archiveKey, info.Name)
		if err := c.Delete(ctx, key); err != nil {
			return fmt.Errorf("pipeline: delete entry: %w", err)
		}
	}

	if err := c.Delete(ctx, archiveKey); err != nil {
		return fmt.Errorf("pipeline: delete archive: %w", err)
	}
	return nil
}
